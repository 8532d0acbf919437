package domain

import "fmt"

// RegStatus is the classregistration.statusid state machine.
type RegStatus int

const (
	RegSubmitted     RegStatus = 1
	RegRegistered    RegStatus = 2
	RegTransferred   RegStatus = 3
	RegDropout       RegStatus = 4
	RegDropoutSpring RegStatus = 5
)

func (s RegStatus) String() string {
	switch s {
	case RegSubmitted:
		return "submitted"
	case RegRegistered:
		return "registered"
	case RegTransferred:
		return "transferred"
	case RegDropout:
		return "dropout"
	case RegDropoutSpring:
		return "dropout_spring"
	default:
		return fmt.Sprintf("regstatus(%d)", int(s))
	}
}

// IsDropout reports whether s is one of the two dropout states.
func (s RegStatus) IsDropout() bool {
	return s == RegDropout || s == RegDropoutSpring
}

// ReqStatus is the regchangerequest.reqstatusid state machine.
type ReqStatus int

const (
	ReqPending  ReqStatus = 1
	ReqApproved ReqStatus = 2
	ReqRejected ReqStatus = 3
)

func (s ReqStatus) String() string {
	switch s {
	case ReqPending:
		return "pending"
	case ReqApproved:
		return "approved"
	case ReqRejected:
		return "rejected"
	default:
		return fmt.Sprintf("reqstatus(%d)", int(s))
	}
}

// ParseReqStatus maps the wire names used by the admin API.
func ParseReqStatus(s string) (ReqStatus, error) {
	switch s {
	case "pending":
		return ReqPending, nil
	case "approved":
		return ReqApproved, nil
	case "rejected":
		return ReqRejected, nil
	}
	return 0, fmt.Errorf("unknown request status %q: %w", s, ErrInvalidInput)
}

// BalanceType is familybalance.typeid.
type BalanceType int

const (
	BalanceTuition    BalanceType = 1
	BalancePayment    BalanceType = 2
	BalanceReversal   BalanceType = 3
	BalanceRefund     BalanceType = 4
	BalanceAdjustment BalanceType = 5
)

// BalanceStatus is familybalance.statusid.
type BalanceStatus int

const (
	BalancePending   BalanceStatus = 1
	BalancePaid      BalanceStatus = 2
	BalanceProcessed BalanceStatus = 3
	BalanceCancelled BalanceStatus = 4
)

// SeasonStatus is seasons.status. Only one season tree is active at a time.
type SeasonStatus int

const (
	SeasonActive   SeasonStatus = 1
	SeasonInactive SeasonStatus = 2
)
