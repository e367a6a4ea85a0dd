package models

// Session identifies who a request acts for. ID is the guest session id and always
// set; UserID and Token are only set for authenticated requests.
type Session struct {
	ID            string
	UserID        string
	Token         string
	Authenticated bool
}
