package domain

import "time"

// Review is feedback left by the tourist on a settled order. Its weight is
// derived on demand from order amount and account age; it is never persisted.
type Review struct {
	ID        string
	OrderID   string
	GuideID   string
	AuthorID  string
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
}
