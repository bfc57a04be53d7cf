package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingPolicy is the operator-tunable rent collection policy. It drives the
// report aging buckets and the overdue/late-fee knobs without a redeploy.
type BillingPolicy struct {
	AgingBuckets []AgingBucket
	GraceDays    int
	LateFee      LateFeePolicy
}

type AgingBucket struct {
	Label   string
	MinDays int
	MaxDays *int
}

type LateFeePolicy struct {
	Enabled    bool
	FlatAmount int64
	Percent    float64
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		AgingBuckets: []AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "60+", MinDays: 61, MaxDays: nil},
		},
		GraceDays: 5,
		LateFee: LateFeePolicy{
			Enabled: false,
			Percent: 0,
		},
	}
}

func intPtr(v int) *int { return &v }

// BillingPolicyHolder exposes the current policy and hot-reloads it when the
// mounted rentflow.yml changes.
type BillingPolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

func NewBillingPolicyHolder() (*BillingPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("rentflow")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/rentflow/config")
	v.AddConfigPath("/etc/rentflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultBillingPolicy()
		v.SetDefault("billing.agingBuckets", defaults.AgingBuckets)
		v.SetDefault("billing.graceDays", defaults.GraceDays)
		v.SetDefault("billing.lateFee", defaults.LateFee)
	}

	var policy BillingPolicy
	if err := v.UnmarshalKey("billing", &policy); err != nil {
		return nil, err
	}
	if err := validateBillingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingPolicy
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-policy] reload failed: %v", err)
			return
		}
		if err := validateBillingPolicy(updated); err != nil {
			log.Printf("[billing-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingPolicyHolder wraps a fixed policy with no file watching.
func NewStaticBillingPolicyHolder(policy BillingPolicy) (*BillingPolicyHolder, error) {
	if err := validateBillingPolicy(policy); err != nil {
		return nil, err
	}
	holder := &BillingPolicyHolder{}
	holder.current.Store(policy)
	return holder, nil
}

func (h *BillingPolicyHolder) Get() BillingPolicy {
	return h.current.Load().(BillingPolicy)
}

func validateBillingPolicy(policy BillingPolicy) error {
	if len(policy.AgingBuckets) == 0 {
		return errors.New("billing.agingBuckets cannot be empty")
	}
	if policy.GraceDays < 0 {
		return errors.New("billing.graceDays cannot be negative")
	}
	if policy.LateFee.Percent < 0 {
		return errors.New("billing.lateFee.percent cannot be negative")
	}
	return nil
}
