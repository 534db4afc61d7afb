package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "stagepass:v1"

func KeyEventSummary(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:summary", ns, eventID)
}

func KeyEventList() string {
	return ns + ":events:list"
}

func KeyEventAvailability(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:availability", ns, eventID)
}

func KeyEventSeatMap(eventID uuid.UUID) string {
	return fmt.Sprintf("%s:event:%s:seatmap", ns, eventID)
}

func KeyIdemCheckout(userID, idemKey string) string {
	return fmt.Sprintf("%s:idem:checkout:%s:%s", ns, userID, idemKey)
}

func ChannelSeatsChanged() string {
	return ns + ":seats:changed"
}
