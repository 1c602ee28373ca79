package usecase

import (
	"regexp"
	"strings"
)

// Order confirmations share a small vocabulary; marketing mail from the
// same senders does not. The filter keeps sync cheap by rejecting mail
// that can't contain an order before any parsing happens.

var (
	orderSubjectPattern = regexp.MustCompile(`(?i)\border\b|\breceipt\b|order confirm|purchase|your delivery`)
	marketingPattern    = regexp.MustCompile(`(?i)unsubscribe from promotions|weekly deals|newsletter|% off|free delivery on your next`)
	itemsMarkerPattern  = regexp.MustCompile(`(?i)\bitems?\b|order details|order summary`)
)

// LooksLikeOrderEmail reports whether an email plausibly carries an
// order: order words in the subject, or a known restaurant plus an item
// section in the body. Marketing tells veto either signal.
func LooksLikeOrderEmail(subject, body string) bool {
	if marketingPattern.MatchString(subject) {
		return false
	}
	if orderSubjectPattern.MatchString(subject) {
		return true
	}
	if detectRestaurant(subject+" "+body) != "" && itemsMarkerPattern.MatchString(body) {
		return true
	}
	return false
}

// restaurantFromSender resolves the catalog restaurant from a sender
// address like "no-reply@popeyes.com".
func restaurantFromSender(from string) string {
	at := strings.LastIndex(from, "@")
	if at < 0 {
		return ""
	}
	return detectRestaurant(from[at+1:])
}
