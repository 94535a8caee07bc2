package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RewardsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_granted_total",
			Help: "Reward operations that changed a balance",
		},
		[]string{"action"},
	)
	RewardAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reward_amount_total",
			Help: "Sum of rewards credited",
		},
		[]string{"action"},
	)
	ActionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_tokens_total",
			Help: "Action token lifecycle events",
		},
		[]string{"result"},
	)
	Commissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commissions_total",
			Help: "Referral commission outcomes",
		},
		[]string{"result"},
	)
	QuotaResets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_resets_total",
			Help: "Lazy quota resets applied",
		},
		[]string{"quota"},
	)
)

func init() {
	prometheus.MustRegister(RewardsGranted, RewardAmount, ActionTokens, Commissions, QuotaResets)
}
