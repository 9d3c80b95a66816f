package domain

import "time"

// Snapshot is the scoring engine's view of a lead at one instant. It is a
// pure value so the same snapshot always produces the same score.
type Snapshot struct {
	CompanyName string
	Industry    string
	Website     *string
	Location    *string
	ContactName *string
	Email       *string
	Phone       *string
	TagCount    int
	Status      Status

	WebsiteStatus    *string
	EmailScore       *int
	PhoneValid       *bool
	DecisionMaker    *bool
	PainPointCount   *int
	InteractionCount *int

	AgeDays             int
	DaysSinceValidation *int
}

// Snapshot projects the lead into a scoring snapshot as of now.
func (l *Lead) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		CompanyName:      l.CompanyName,
		Industry:         l.Industry,
		Website:          l.Website,
		Location:         l.Location,
		ContactName:      l.ContactName,
		Email:            l.Email,
		Phone:            l.Phone,
		TagCount:         len(l.Tags),
		Status:           l.Status,
		WebsiteStatus:    l.WebsiteStatus,
		EmailScore:       l.EmailScore,
		PhoneValid:       l.PhoneValid,
		DecisionMaker:    l.DecisionMaker,
		PainPointCount:   l.PainPointCount,
		InteractionCount: l.InteractionCount,
	}
	if !l.CreatedAt.IsZero() {
		snap.AgeDays = int(now.Sub(l.CreatedAt).Hours() / 24)
	}
	if l.LastValidatedAt != nil {
		days := int(now.Sub(*l.LastValidatedAt).Hours() / 24)
		snap.DaysSinceValidation = &days
	}
	return snap
}
