package adapters

import (
	"strings"
	"time"

	"github.com/trogers1052/action-feed-service/internal/models"
)

// AdaptProofReceipt maps a completed-transaction record. Receipts are always
// low-severity, confirmed, review-only and never expire.
func AdaptProofReceipt(r models.ProofReceipt, now time.Time) (models.ActionDraft, bool) {
	title := r.Title
	if title == "" {
		title = "Transaction confirmed"
	}
	completed := orNow(r.CompletedAt, now)

	return models.ActionDraft{
		ID:           actionID(models.SourceProof, r.ID),
		Lane:         models.LaneWatch,
		Title:        title,
		Severity:     models.SeverityLow,
		Provenance:   models.ProvenanceConfirmed,
		IsExecutable: false,
		CTA:          models.CTA{Kind: models.CTAReview, Href: proofHref(r)},
		EventTime:    completed,
		Source:       models.Source{Kind: models.SourceProof, RefID: r.ID},
		CreatedAt:    completed,
		Wallet:       r.Wallet,
	}, true
}

// AdaptProofReceipts adapts a batch.
func AdaptProofReceipts(receipts []models.ProofReceipt, now time.Time) []models.ActionDraft {
	drafts := make([]models.ActionDraft, 0, len(receipts))
	for _, r := range receipts {
		if d, ok := AdaptProofReceipt(r, now); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

func proofHref(r models.ProofReceipt) string {
	if r.TxHash == "" {
		return "/proof/" + r.ID
	}
	return "/proof/" + strings.ToLower(r.Chain) + "/" + r.TxHash
}
