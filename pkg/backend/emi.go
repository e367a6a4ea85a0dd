package backend

import (
	"context"
	"net/url"
	"strconv"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

func (c *Client) EMIPlans(ctx context.Context, productID int64) ([]models.EMIPlan, error) {
	query := url.Values{}
	query.Set("product", strconv.FormatInt(productID, 10))
	var plans []models.EMIPlan
	if err := c.getList(ctx, "emi/plans/", query, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *Client) AvailableBanks(ctx context.Context) ([]models.Bank, error) {
	var banks []models.Bank
	if err := c.getList(ctx, "emi/plans/available_banks/", nil, &banks); err != nil {
		return nil, err
	}
	return banks, nil
}

func (c *Client) CalculateEMI(ctx context.Context, planID int64, productPrice float64, bankCode string) (*models.EMICalculation, error) {
	query := url.Values{}
	query.Set("plan_id", strconv.FormatInt(planID, 10))
	query.Set("product_price", strconv.FormatFloat(productPrice, 'f', 2, 64))
	if bankCode != "" {
		query.Set("bank_code", bankCode)
	}
	var calc models.EMICalculation
	if err := c.get(ctx, "emi/plans/calculate_emi/", query, &calc); err != nil {
		return nil, err
	}
	return &calc, nil
}
