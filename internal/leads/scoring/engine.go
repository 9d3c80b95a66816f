// Package scoring computes lead quality scores. The engine is pure: the
// same snapshot always yields the same score, confidence and breakdown,
// with no I/O or clock reads.
package scoring

import (
	"math"
	"regexp"
	"strings"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"
)

// Version identifies the factor table in use. Bump when weights change so
// audit metadata can tell score generations apart.
const Version = "v2"

const (
	minScore = 0
	maxScore = 100

	// No single factor may dominate the total.
	maxFactorPoints = 30

	// Confidence floor when only mandatory attributes are populated.
	baseConfidence = 0.30
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Result is the outcome of scoring one snapshot.
type Result struct {
	Score      int
	Confidence float64
	Factors    map[string]int
	Version    string
}

// Engine scores lead snapshots against a fixed factor table.
type Engine struct {
	industryTiers map[string]int
}

// NewEngine creates a scoring engine with the default industry tiers.
func NewEngine() *Engine {
	return &Engine{industryTiers: defaultIndustryTiers()}
}

// Higher tiers are industries with stronger historical close rates.
func defaultIndustryTiers() map[string]int {
	tiers := map[string]int{}
	for _, name := range []string{"software", "saas", "fintech", "healthcare", "manufacturing"} {
		tiers[name] = 1
	}
	for _, name := range []string{"construction", "logistics", "energy", "real estate", "professional services"} {
		tiers[name] = 2
	}
	for _, name := range []string{"retail", "hospitality", "education", "nonprofit", "media"} {
		tiers[name] = 3
	}
	return tiers
}

// Score computes the quality score for the snapshot. Missing mandatory
// attributes (company name, industry) fail with an invalid input error;
// missing optional attributes only lower confidence.
func (e *Engine) Score(snap domain.Snapshot) (Result, error) {
	if strings.TrimSpace(snap.CompanyName) == "" {
		return Result{}, apperr.InvalidInput("cannot score lead without company name")
	}
	if strings.TrimSpace(snap.Industry) == "" {
		return Result{}, apperr.InvalidInput("cannot score lead without industry")
	}

	factors := map[string]int{}
	total := 0
	add := func(name string, points int) {
		if points > maxFactorPoints {
			points = maxFactorPoints
		}
		if points < -maxFactorPoints {
			points = -maxFactorPoints
		}
		factors[name] = points
		total += points
	}

	add("company_profile", e.scoreCompanyProfile(snap))
	add("industry_tier", e.scoreIndustryTier(snap))
	add("email", e.scoreEmail(snap))
	add("email_deliverability", e.scoreEmailDeliverability(snap))
	add("phone", e.scorePhone(snap))
	add("phone_validity", e.scorePhoneValidity(snap))
	add("contact_name", e.scoreContactName(snap))
	add("decision_maker", e.scoreDecisionMaker(snap))
	add("website", e.scoreWebsite(snap))
	add("website_liveness", e.scoreWebsiteLiveness(snap))
	add("location", e.scoreLocation(snap))
	add("tags", e.scoreTags(snap))
	add("engagement", e.scoreEngagement(snap))
	add("pain_points", e.scorePainPoints(snap))
	add("status_momentum", e.scoreStatusMomentum(snap))
	add("freshness", e.scoreFreshness(snap))

	return Result{
		Score:      clampScore(total),
		Confidence: e.confidence(snap),
		Factors:    factors,
		Version:    Version,
	}, nil
}

func (e *Engine) scoreCompanyProfile(snap domain.Snapshot) int {
	name := strings.TrimSpace(snap.CompanyName)
	points := 0
	if len(name) >= 3 {
		points += 4
	}
	if strings.ContainsRune(name, ' ') || hasLegalSuffix(name) {
		points += 4
	}
	return points
}

func hasLegalSuffix(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{" inc", " llc", " ltd", " gmbh", " bv", " corp", " co."} {
		if strings.HasSuffix(lower, suffix) || strings.Contains(lower, suffix+" ") || strings.HasSuffix(lower, suffix+".") {
			return true
		}
	}
	return false
}

func (e *Engine) scoreIndustryTier(snap domain.Snapshot) int {
	switch e.industryTiers[strings.ToLower(strings.TrimSpace(snap.Industry))] {
	case 1:
		return 12
	case 2:
		return 8
	case 3:
		return 5
	default:
		return 2
	}
}

func (e *Engine) scoreEmail(snap domain.Snapshot) int {
	if snap.Email == nil {
		return 0
	}
	if !emailPattern.MatchString(*snap.Email) {
		return -2
	}
	return 6
}

func (e *Engine) scoreEmailDeliverability(snap domain.Snapshot) int {
	if snap.EmailScore == nil {
		return 0
	}
	score := *snap.EmailScore
	if score < 40 {
		return -4
	}
	return score * 12 / 100
}

func (e *Engine) scorePhone(snap domain.Snapshot) int {
	if snap.Phone == nil {
		return 0
	}
	return 4
}

func (e *Engine) scorePhoneValidity(snap domain.Snapshot) int {
	if snap.PhoneValid == nil {
		return 0
	}
	if *snap.PhoneValid {
		return 4
	}
	return -3
}

func (e *Engine) scoreContactName(snap domain.Snapshot) int {
	if snap.ContactName == nil {
		return 0
	}
	return 4
}

func (e *Engine) scoreDecisionMaker(snap domain.Snapshot) int {
	if snap.DecisionMaker == nil || !*snap.DecisionMaker {
		return 0
	}
	return 8
}

func (e *Engine) scoreWebsite(snap domain.Snapshot) int {
	if snap.Website == nil {
		return 0
	}
	return 4
}

func (e *Engine) scoreWebsiteLiveness(snap domain.Snapshot) int {
	if snap.WebsiteStatus == nil {
		return 0
	}
	switch *snap.WebsiteStatus {
	case "active":
		return 8
	case "unreachable", "timeout", "not_found":
		return -6
	default:
		return 0
	}
}

func (e *Engine) scoreLocation(snap domain.Snapshot) int {
	if snap.Location == nil {
		return 0
	}
	return 3
}

func (e *Engine) scoreTags(snap domain.Snapshot) int {
	if snap.TagCount <= 0 {
		return 0
	}
	if snap.TagCount >= 3 {
		return 4
	}
	return snap.TagCount + 1
}

func (e *Engine) scoreEngagement(snap domain.Snapshot) int {
	if snap.InteractionCount == nil {
		return 0
	}
	n := *snap.InteractionCount
	if n <= 0 {
		return 0
	}
	if n > 4 {
		n = 4
	}
	return n * 2
}

func (e *Engine) scorePainPoints(snap domain.Snapshot) int {
	if snap.PainPointCount == nil {
		return 0
	}
	n := *snap.PainPointCount
	if n <= 0 {
		return 0
	}
	if n > 4 {
		n = 4
	}
	return n * 2
}

func (e *Engine) scoreStatusMomentum(snap domain.Snapshot) int {
	switch snap.Status {
	case domain.StatusQualified, domain.StatusConverted:
		return 6
	case domain.StatusContacted:
		return 3
	case domain.StatusRejected, domain.StatusOptOut:
		return -10
	default:
		return 0
	}
}

func (e *Engine) scoreFreshness(snap domain.Snapshot) int {
	if snap.DaysSinceValidation == nil {
		if snap.AgeDays > 90 {
			return -2
		}
		return 0
	}
	days := *snap.DaysSinceValidation
	switch {
	case days <= 30:
		return 6
	case days <= 90:
		return 2
	case days <= 180:
		return 0
	default:
		return -6
	}
}

// confidence reflects how much of the optional attribute set is populated.
// A lead with only mandatory attributes sits at the floor; every optional
// signal filled in raises it toward 1.0.
func (e *Engine) confidence(snap domain.Snapshot) float64 {
	signals := []bool{
		snap.Email != nil,
		snap.EmailScore != nil,
		snap.Phone != nil,
		snap.PhoneValid != nil,
		snap.ContactName != nil,
		snap.DecisionMaker != nil,
		snap.Website != nil,
		snap.WebsiteStatus != nil,
		snap.Location != nil,
		snap.TagCount > 0,
		snap.InteractionCount != nil,
		snap.PainPointCount != nil,
		snap.DaysSinceValidation != nil,
	}
	populated := 0
	for _, present := range signals {
		if present {
			populated++
		}
	}
	confidence := baseConfidence + (1-baseConfidence)*float64(populated)/float64(len(signals))
	return math.Round(confidence*100) / 100
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
