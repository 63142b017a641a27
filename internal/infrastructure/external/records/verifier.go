// Package records implements customer verification against the bank's local
// customer records snapshot.
package records

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
	"github.com/dkrause/garnishflow/internal/domain/entity"
)

// Weighting of the two match signals. The account number is the stronger
// identifier; the name guards against a transposed digit matching the wrong
// customer.
const (
	nameWeight    = 0.4
	accountWeight = 0.6
	matchFloor    = 0.5
)

// CustomerDirectory provides the customer snapshot to match against
type CustomerDirectory interface {
	All(ctx context.Context) ([]*entity.Customer, error)
}

// Verifier implements port.VerificationService with weighted fuzzy matching
type Verifier struct {
	directory CustomerDirectory
	logger    *zap.Logger
}

// NewVerifier creates a new records verifier
func NewVerifier(directory CustomerDirectory, logger *zap.Logger) *Verifier {
	return &Verifier{
		directory: directory,
		logger:    logger,
	}
}

// Verify scores the claim against every customer on record and returns the
// best match. A claim with neither a name nor an account number can never
// match.
func (v *Verifier) Verify(ctx context.Context, claim port.CustomerClaim) (*port.VerificationResult, error) {
	if claim.Name == "" && claim.AccountNumber == "" {
		return nil, port.PermanentError("records", "verify",
			fmt.Errorf("claim carries neither name nor account number"))
	}

	customers, err := v.directory.All(ctx)
	if err != nil {
		return nil, port.TransientError("records", "verify", err)
	}

	var best *entity.Customer
	var bestScore float64
	for _, customer := range customers {
		// Records flagged rejected in an earlier review cycle stay out of
		// the candidate pool.
		if customer.VerificationStatus == entity.VerificationRejected {
			continue
		}
		score := v.score(claim, customer)
		if score > bestScore {
			bestScore = score
			best = customer
		}
	}

	result := &port.VerificationResult{
		Matched: bestScore > matchFloor,
		Score:   bestScore,
	}
	if best != nil {
		result.CustomerID = best.ID
	}

	v.logger.Info("Customer verification scored",
		zap.String("claim_name", claim.Name),
		zap.Float64("score", bestScore),
		zap.Bool("matched", result.Matched),
		zap.String("customer_id", result.CustomerID))

	return result, nil
}

func (v *Verifier) score(claim port.CustomerClaim, customer *entity.Customer) float64 {
	var score float64

	if nameMatches(claim.Name, customer.Name) {
		score += nameWeight
	}
	for _, acc := range customer.AccountNumbers {
		if claim.AccountNumber != "" && strings.EqualFold(claim.AccountNumber, acc) {
			score += accountWeight
			break
		}
	}

	return score
}

// nameMatches compares names case-insensitively. Besides plain containment,
// a claim whose words all appear in the record counts as a match, so
// "John Smith" matches a record of "John A. Smith".
func nameMatches(claimed, recorded string) bool {
	claimed = strings.ToLower(strings.TrimSpace(claimed))
	recorded = strings.ToLower(strings.TrimSpace(recorded))
	if claimed == "" || recorded == "" {
		return false
	}
	if strings.Contains(recorded, claimed) || strings.Contains(claimed, recorded) {
		return true
	}

	recordedWords := make(map[string]bool)
	for _, w := range strings.Fields(recorded) {
		recordedWords[w] = true
	}
	for _, w := range strings.Fields(claimed) {
		if !recordedWords[w] {
			return false
		}
	}
	return true
}

var _ port.VerificationService = (*Verifier)(nil)
