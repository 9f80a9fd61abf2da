package user

// User is a pool participant. TotalPoints only moves through atomic increments.
type User struct {
	ID          string
	DisplayName string
	TotalPoints int
}
