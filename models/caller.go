package models

// CallerContext identifies the authenticated principal behind a
// governance call. It is passed explicitly into every service method;
// nothing reads tenant identity from ambient state.
type CallerContext struct {
	OrganizationID int64
	UserID         int64
	Role           string
}

// Valid reports whether the caller carries a usable tenant identity
func (c CallerContext) Valid() bool {
	return c.OrganizationID > 0
}
