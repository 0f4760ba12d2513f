// Package plan enforces subscription-tier quotas before resource creation.
package plan

import (
	"github.com/atelierhq/atelier-api/internal/models"
)

// Unlimited marks a quota with no cap.
const Unlimited int64 = -1

// Kind identifies a countable, quota-bound resource class.
type Kind string

const (
	KindSeats        Kind = "seats"
	KindProjects     Kind = "projects"
	KindClients      Kind = "clients"
	KindStorageBytes Kind = "storage_bytes"
)

// Feature is a tier-gated capability flag.
type Feature string

const (
	FeatureGantt   Feature = "gantt"
	FeatureInvites Feature = "invites"
	FeatureReports Feature = "reports"
)

type Limits struct {
	MaxSeats          int64
	MaxActiveProjects int64
	MaxClients        int64
	MaxStorageBytes   int64
	Features          []Feature
}

func (l Limits) HasFeature(f Feature) bool {
	for _, have := range l.Features {
		if have == f {
			return true
		}
	}
	return false
}

func (l Limits) For(kind Kind) int64 {
	switch kind {
	case KindSeats:
		return l.MaxSeats
	case KindProjects:
		return l.MaxActiveProjects
	case KindClients:
		return l.MaxClients
	case KindStorageBytes:
		return l.MaxStorageBytes
	}
	return 0
}

var limitsByTier = map[models.Tier]Limits{
	models.TierSolo: {
		MaxSeats:          1,
		MaxActiveProjects: 3,
		MaxClients:        3,
		MaxStorageBytes:   1 << 30, // 1 GiB
	},
	models.TierAtelier: {
		MaxSeats:          5,
		MaxActiveProjects: 15,
		MaxClients:        5,
		MaxStorageBytes:   10 << 30,
		Features:          []Feature{FeatureGantt, FeatureInvites},
	},
	models.TierStudio: {
		MaxSeats:          Unlimited,
		MaxActiveProjects: Unlimited,
		MaxClients:        Unlimited,
		MaxStorageBytes:   Unlimited,
		Features:          []Feature{FeatureGantt, FeatureInvites, FeatureReports},
	},
}

// ForTier returns the quota table for a tier. Unknown tiers fall back to the
// most restrictive plan.
func ForTier(tier models.Tier) Limits {
	if l, ok := limitsByTier[tier]; ok {
		return l
	}
	return limitsByTier[models.TierSolo]
}

var displayNames = map[models.Tier]string{
	models.TierSolo:    "Solo",
	models.TierAtelier: "Atelier",
	models.TierStudio:  "Studio",
}

// DisplayName returns the customer-facing plan name, suitable for denial
// messages.
func DisplayName(tier models.Tier) string {
	if name, ok := displayNames[tier]; ok {
		return name
	}
	return string(tier)
}
