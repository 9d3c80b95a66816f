// Package enrichment implements the external validation collaborators:
// email deliverability, phone validity, website liveness and AI-derived
// insights. Each check carries its own timeout and reports provider
// outages as Unavailable so the revalidation runner can retry.
package enrichment

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"

	"leadngn_backend/internal/revalidation"
	"leadngn_backend/platform/apperr"

	"golang.org/x/time/rate"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Deliverability scoring weights. Format and MX presence carry the bulk;
// role accounts are penalized because they rarely reach a person.
const (
	formatPoints   = 40
	mxPoints       = 50
	personalPoints = 10
	rolePenalty    = 10
)

var roleLocalParts = map[string]bool{
	"info": true, "admin": true, "sales": true, "support": true,
	"contact": true, "office": true, "hello": true, "noreply": true,
}

var disposableDomains = map[string]bool{
	"mailinator.com": true, "guerrillamail.com": true, "10minutemail.com": true,
	"tempmail.com": true, "yopmail.com": true, "sharklasers.com": true,
}

// EmailVerifier scores email deliverability from syntax and DNS evidence.
type EmailVerifier struct {
	resolver *net.Resolver
	limiter  *rate.Limiter
}

// NewEmailVerifier creates an email verifier with a modest DNS query rate.
func NewEmailVerifier() *EmailVerifier {
	return &EmailVerifier{
		resolver: net.DefaultResolver,
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
	}
}

// CheckEmail scores the address 0 to 100. DNS outages surface as
// Unavailable; a domain that verifiably has no mail exchanger is a low
// score, not an error.
func (v *EmailVerifier) CheckEmail(ctx context.Context, email string) (revalidation.EmailResult, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return revalidation.EmailResult{}, apperr.Unavailable("email verifier rate limit wait interrupted", err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return revalidation.EmailResult{Score: 0, Deliverable: false}, nil
	}
	score := formatPoints

	at := strings.LastIndex(email, "@")
	local, domain := email[:at], email[at+1:]

	if disposableDomains[domain] {
		return revalidation.EmailResult{Score: personalPoints, Deliverable: false}, nil
	}
	if roleLocalParts[localBase(local)] {
		score -= rolePenalty
	}

	records, err := v.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			// Definitive answer: the domain accepts no mail.
		} else {
			return revalidation.EmailResult{}, apperr.Unavailable("mx lookup failed", err)
		}
	} else if len(records) > 0 {
		score += mxPoints
	}

	return revalidation.EmailResult{Score: score, Deliverable: score >= 60}, nil
}

// localBase strips plus-addressing and dots so jane.doe+crm matches the
// role table the same way janedoe would.
func localBase(local string) string {
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	return strings.ReplaceAll(local, ".", "")
}
