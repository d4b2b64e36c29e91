package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventInvestmentActivated = "investment.activated"

	EventMemberRegistered     = "member.registered"
	EventMemberPlaced         = "member.placed"
	EventTierUpgraded         = "tier.upgraded"
	EventCommissionCreated    = "commission.created"
	EventCommissionSettled    = "commission.settled"
	EventCommissionClawedBack = "commission.clawed_back"
	EventCommissionVoided     = "commission.voided"
	EventWithdrawalRequested  = "withdrawal.requested"
	EventWithdrawalApproved   = "withdrawal.approved"
	EventWithdrawalRejected   = "withdrawal.rejected"
	EventWithdrawalProcessed  = "withdrawal.processed"
	EventDistributionStarted  = "distribution.started"
	EventDistributionComplete = "distribution.completed"
)

func IsCanonicalInputEvent(eventType string) bool {
	return eventType == EventInvestmentActivated
}

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventMemberRegistered, EventMemberPlaced, EventTierUpgraded,
		EventCommissionCreated, EventCommissionSettled, EventCommissionClawedBack, EventCommissionVoided,
		EventWithdrawalRequested, EventWithdrawalApproved, EventWithdrawalRejected, EventWithdrawalProcessed,
		EventDistributionStarted, EventDistributionComplete:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) {
		return CanonicalEventClassDomain
	}
	return ""
}

func CanonicalPartitionKeyPath(eventType string) string {
	switch {
	case eventType == EventDistributionStarted || eventType == EventDistributionComplete:
		return "data.distribution_id"
	case IsCanonicalEmittedEvent(eventType) || IsCanonicalInputEvent(eventType):
		return "data.member_id"
	}
	return ""
}
