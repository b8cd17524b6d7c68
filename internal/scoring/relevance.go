package scoring

import (
	"regexp"
	"strings"

	"github.com/trogers1052/action-feed-service/internal/models"
)

const (
	savedBonus  = 15
	walletBonus = 10
	tagBonus    = 5

	// MaxRelevance is the relevance ceiling.
	MaxRelevance = 30
)

var walletPattern = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)

// titleKeywords are the fixed terms matched against alert-rule tags.
var titleKeywords = []string{
	"approval",
	"airdrop",
	"bridge",
	"claim",
	"drain",
	"exploit",
	"liquidation",
	"phishing",
	"staking",
	"swap",
	"unlock",
	"yield",
}

// Relevance scores personalization on 0..30: +15 for a saved reference, +10
// for a wallet with an assigned role, +5 once if any derived tag matches an
// alert rule.
func Relevance(d models.ActionDraft, ctx models.AdapterContext) int {
	score := 0
	if ctx.SavedRefs[d.Source.RefID] {
		score += savedBonus
	}
	if matchesWalletRole(d, ctx.WalletRoles) {
		score += walletBonus
	}
	if len(ctx.AlertTags) > 0 {
		for _, tag := range DeriveTags(d) {
			if ctx.AlertTags[tag] {
				score += tagBonus
				break
			}
		}
	}
	if score > MaxRelevance {
		score = MaxRelevance
	}
	if score < 0 {
		score = 0
	}
	return score
}

// DeriveTags returns the lower-cased source kind, lane and any fixed keywords
// found in the title.
func DeriveTags(d models.ActionDraft) []string {
	tags := []string{
		strings.ToLower(string(d.Source.Kind)),
		strings.ToLower(string(d.Lane)),
	}
	title := strings.ToLower(d.Title)
	for _, kw := range titleKeywords {
		if strings.Contains(title, kw) {
			tags = append(tags, kw)
		}
	}
	return tags
}

// WalletAddresses returns the addresses a draft refers to: the adapter-emitted
// wallet first, then any found in the CTA href or reference id.
func WalletAddresses(d models.ActionDraft) []string {
	var addrs []string
	if d.Wallet != "" {
		addrs = append(addrs, strings.ToLower(d.Wallet))
	}
	for _, s := range []string{d.CTA.Href, d.Source.RefID} {
		for _, m := range walletPattern.FindAllString(s, -1) {
			addrs = append(addrs, strings.ToLower(m))
		}
	}
	return addrs
}

func matchesWalletRole(d models.ActionDraft, roles map[string]string) bool {
	if len(roles) == 0 {
		return false
	}
	for _, addr := range WalletAddresses(d) {
		if _, ok := roles[addr]; ok {
			return true
		}
	}
	return false
}
