package types

import (
	"errors"
	"fmt"
)

type UserType string

const (
	UserTypeJobseeker UserType = "jobseeker"
	UserTypeEmployer  UserType = "employer"
)

var UserTypes = []UserType{UserTypeJobseeker, UserTypeEmployer}

type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

var ErrUnknownUserType = errors.New("unknown user type")

// FreeTiers maps every user type to the plan a user falls back to once a
// paid subscription ends. Every known user type must have an entry.
type FreeTiers map[UserType]string

// For returns the free plan for userType, or ErrUnknownUserType.
func (f FreeTiers) For(userType UserType) (string, error) {
	plan, ok := f[userType]
	if !ok || plan == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownUserType, userType)
	}
	return plan, nil
}

// Plans lists the distinct free plan names.
func (f FreeTiers) Plans() []string {
	seen := make(map[string]struct{}, len(f))
	plans := make([]string, 0, len(f))
	for _, ut := range UserTypes {
		p, ok := f[ut]
		if !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		plans = append(plans, p)
	}
	return plans
}

// Validate reports the first user type without a free plan.
func (f FreeTiers) Validate() error {
	for _, ut := range UserTypes {
		if _, err := f.For(ut); err != nil {
			return err
		}
	}
	return nil
}
