// Package accounts derives corporate accounts from leads that share an
// email domain and computes buying-intent signals across each group.
// Grouping is a pure read path: it never writes back to leads.
package accounts

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"leadngn_backend/internal/leads/domain"
	"leadngn_backend/platform/apperr"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/config"
	"leadngn_backend/platform/logger"

	"github.com/google/uuid"
)

// Role is the classified function of an account member.
type Role string

const (
	RoleExecutive Role = "executive"
	RoleManager   Role = "manager"
	RoleTechnical Role = "technical"
	RoleStaff     Role = "staff"
	RoleUnknown   Role = "unknown"
)

var roleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleExecutive, []string{"ceo", "cto", "cfo", "coo", "founder", "owner", "president", "chief"}},
	{RoleManager, []string{"manager", "director", "head", "supervisor", "vp"}},
	{RoleTechnical, []string{"engineer", "developer", "architect", "technician", "tech", "it"}},
	{RoleStaff, []string{"assistant", "coordinator", "analyst", "specialist", "representative", "admin"}},
}

// Member is one lead inside an account.
type Member struct {
	LeadID       uuid.UUID     `json:"lead_id"`
	ContactName  *string       `json:"contact_name,omitempty"`
	Email        string        `json:"email"`
	Role         Role          `json:"role"`
	QualityScore int           `json:"quality_score"`
	Status       domain.Status `json:"status"`
}

// Account is a group of leads sharing a corporate email domain.
type Account struct {
	Domain        string    `json:"domain"`
	CompanyName   string    `json:"company_name"`
	Members       []Member  `json:"members"`
	MemberCount   int       `json:"member_count"`
	AverageScore  float64   `json:"average_score"`
	DistinctRoles int       `json:"distinct_roles"`
	IntentScore   int       `json:"intent_score"`
	BuyingSignals []string  `json:"buying_signals"`
	LastActivity  time.Time `json:"last_activity"`
}

// Intent score weights. Cross-departmental engagement counts for more
// than raw contact volume, and a single contact can never signal strong
// account-level intent.
const (
	memberCountWeight   = 8
	avgScoreWeight      = 0.3
	distinctRoleWeight  = 5
	recentActivityBonus = 10
	singleContactCap    = 40
)

// GroupByDomain groups leads into accounts by corporate email domain.
// Leads without an email, or whose domain is on the free-mail exclusion
// list, are skipped. The result is a pure function of its inputs.
func GroupByDomain(leads []*domain.Lead, freeMail []string, now time.Time) map[string]*Account {
	excluded := make(map[string]bool, len(freeMail))
	for _, d := range freeMail {
		excluded[strings.ToLower(d)] = true
	}

	accounts := map[string]*Account{}
	for _, lead := range leads {
		emailDomain := lead.EmailDomain()
		if emailDomain == "" || excluded[emailDomain] {
			continue
		}
		account, ok := accounts[emailDomain]
		if !ok {
			account = &Account{Domain: emailDomain}
			accounts[emailDomain] = account
		}
		account.Members = append(account.Members, Member{
			LeadID:       lead.ID,
			ContactName:  lead.ContactName,
			Email:        *lead.Email,
			Role:         classifyRole(lead),
			QualityScore: lead.QualityScore,
			Status:       lead.Status,
		})
		if account.CompanyName == "" {
			account.CompanyName = lead.CompanyName
		}
		if lead.UpdatedAt.After(account.LastActivity) {
			account.LastActivity = lead.UpdatedAt
		}
	}

	for _, account := range accounts {
		finalize(account, now)
	}
	return accounts
}

// classifyRole inspects the contact name and email local part against the
// keyword table. Unknown is the lowest-confidence bucket.
func classifyRole(lead *domain.Lead) Role {
	var haystack strings.Builder
	if lead.ContactName != nil {
		haystack.WriteString(strings.ToLower(*lead.ContactName))
	}
	if lead.Email != nil {
		if at := strings.LastIndex(*lead.Email, "@"); at > 0 {
			haystack.WriteString(" ")
			haystack.WriteString(strings.ToLower((*lead.Email)[:at]))
		}
	}
	text := haystack.String()

	for _, group := range roleKeywords {
		for _, keyword := range group.keywords {
			if containsWord(text, keyword) {
				return group.role
			}
		}
	}
	return RoleUnknown
}

// containsWord matches keyword on token boundaries so "it" does not match
// inside "smith".
func containsWord(text, keyword string) bool {
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '.' || r == '-' || r == '_' || r == '+'
	}) {
		if token == keyword {
			return true
		}
	}
	return false
}

func finalize(account *Account, now time.Time) {
	account.MemberCount = len(account.Members)

	total := 0
	roles := map[Role]bool{}
	for _, member := range account.Members {
		total += member.QualityScore
		if member.Role != RoleUnknown {
			roles[member.Role] = true
		}
	}
	account.AverageScore = math.Round(float64(total)/float64(account.MemberCount)*10) / 10
	account.DistinctRoles = len(roles)

	account.IntentScore = intentScore(account, now)
	account.BuyingSignals = buyingSignals(account, now)

	sort.Slice(account.Members, func(i, j int) bool {
		return account.Members[i].QualityScore > account.Members[j].QualityScore
	})
}

func intentScore(account *Account, now time.Time) int {
	members := account.MemberCount
	if members > 5 {
		members = 5
	}
	score := float64(members * memberCountWeight)
	score += account.AverageScore * avgScoreWeight

	roles := account.DistinctRoles
	if roles > 4 {
		roles = 4
	}
	score += float64(roles * distinctRoleWeight)

	if now.Sub(account.LastActivity) <= 7*24*time.Hour {
		score += recentActivityBonus
	} else if now.Sub(account.LastActivity) <= 30*24*time.Hour {
		score += recentActivityBonus / 2
	}

	result := int(math.Round(score))
	if account.MemberCount == 1 && result > singleContactCap {
		result = singleContactCap
	}
	if result > 100 {
		result = 100
	}
	return result
}

func buyingSignals(account *Account, now time.Time) []string {
	var signals []string
	if account.MemberCount >= 2 {
		signals = append(signals, "multiple_contacts")
	}
	if account.DistinctRoles >= 2 {
		signals = append(signals, "cross_departmental")
	}
	for _, member := range account.Members {
		if member.Role == RoleExecutive {
			signals = append(signals, "executive_engaged")
			break
		}
	}
	if account.AverageScore >= 70 {
		signals = append(signals, "high_average_quality")
	}
	if now.Sub(account.LastActivity) <= 7*24*time.Hour {
		signals = append(signals, "recent_activity")
	}
	return signals
}

// LeadLister is the read path into the lead store.
type LeadLister interface {
	ListWithEmail(ctx context.Context) ([]*domain.Lead, error)
}

// AccountCache caches computed accounts by domain.
type AccountCache interface {
	Get(ctx context.Context, domain string) (*Account, bool)
	Set(ctx context.Context, account *Account)
	Invalidate(ctx context.Context, domain string)
}

// Service serves account views over the lead store with a cache in front
// of single-domain lookups.
type Service struct {
	leads LeadLister
	cache AccountCache
	cfg   config.AccountsConfig
	clock clock.Clock
	log   *logger.Logger
}

// NewService creates an accounts service. A nil cache disables caching.
func NewService(leads LeadLister, cache AccountCache, cfg config.AccountsConfig, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{leads: leads, cache: cache, cfg: cfg, clock: clk, log: log}
}

// List returns all accounts ordered by intent score, strongest first.
func (s *Service) List(ctx context.Context) ([]*Account, error) {
	leads, err := s.leads.ListWithEmail(ctx)
	if err != nil {
		return nil, err
	}
	grouped := GroupByDomain(leads, s.cfg.GetFreeMailDomains(), s.clock.Now())

	accounts := make([]*Account, 0, len(grouped))
	for _, account := range grouped {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].IntentScore != accounts[j].IntentScore {
			return accounts[i].IntentScore > accounts[j].IntentScore
		}
		return accounts[i].Domain < accounts[j].Domain
	})
	return accounts, nil
}

// Top returns the strongest accounts, at most limit of them.
func (s *Service) Top(ctx context.Context, limit int) ([]*Account, error) {
	accounts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// Get returns one account by domain, from cache when possible.
func (s *Service) Get(ctx context.Context, accountDomain string) (*Account, error) {
	accountDomain = strings.ToLower(strings.TrimSpace(accountDomain))
	if accountDomain == "" {
		return nil, apperr.InvalidInput("account domain is required")
	}

	if s.cache != nil {
		if account, ok := s.cache.Get(ctx, accountDomain); ok {
			return account, nil
		}
	}

	leads, err := s.leads.ListWithEmail(ctx)
	if err != nil {
		return nil, err
	}
	grouped := GroupByDomain(leads, s.cfg.GetFreeMailDomains(), s.clock.Now())
	account, ok := grouped[accountDomain]
	if !ok {
		return nil, apperr.NotFound("no account for domain " + accountDomain)
	}

	if s.cache != nil {
		s.cache.Set(ctx, account)
	}
	return account, nil
}

// Invalidate drops the cached view of one domain. Wired to lead mutation
// events so stale group views never outlive the data.
func (s *Service) Invalidate(ctx context.Context, accountDomain string) {
	if s.cache == nil || accountDomain == "" {
		return
	}
	s.cache.Invalidate(ctx, strings.ToLower(accountDomain))
}
