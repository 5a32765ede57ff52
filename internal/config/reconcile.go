package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ReconcilePolicy tunes side effects applied while reconciling webhooks.
type ReconcilePolicy struct {
	AutoCapture     bool   `mapstructure:"autoCapture"`
	PaidOrderStatus string `mapstructure:"paidOrderStatus"`
	DefaultCurrency string `mapstructure:"defaultCurrency"`
}

func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		AutoCapture:     true,
		PaidOrderStatus: "paid",
		DefaultCurrency: "INR",
	}
}

type ReconcilePolicyHolder struct {
	current atomic.Value // holds ReconcilePolicy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(policy ReconcilePolicy) *ReconcilePolicyHolder {
	holder := &ReconcilePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewReconcilePolicyHolder(cfg Config, log *zap.Logger) (*ReconcilePolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.reconcile")

	v := viper.New()
	if cfg.ReconcileConfigPath != "" {
		v.SetConfigFile(cfg.ReconcileConfigPath)
	} else {
		v.SetConfigName("reconcile")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/payrail")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PAYRAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconcilePolicy()
	v.SetDefault("reconcile.autoCapture", getenvBool("RECONCILE_AUTO_CAPTURE", defaults.AutoCapture))
	v.SetDefault("reconcile.paidOrderStatus", defaults.PaidOrderStatus)
	v.SetDefault("reconcile.defaultCurrency", defaults.DefaultCurrency)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	var policy ReconcilePolicy
	if err := v.UnmarshalKey("reconcile", &policy); err != nil {
		return nil, err
	}
	if err := validateReconcilePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReconcilePolicy
		if err := v.UnmarshalKey("reconcile", &updated); err != nil {
			log.Warn("reconcile policy reload failed", zap.Error(err))
			return
		}
		if err := validateReconcilePolicy(updated); err != nil {
			log.Warn("invalid reconcile policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reconcile policy reloaded",
			zap.String("file", e.Name),
			zap.Bool("auto_capture", updated.AutoCapture),
		)
	})

	return holder, nil
}

func (h *ReconcilePolicyHolder) Get() ReconcilePolicy {
	if h == nil {
		return DefaultReconcilePolicy()
	}
	policy, ok := h.current.Load().(ReconcilePolicy)
	if !ok {
		return DefaultReconcilePolicy()
	}
	return policy
}

func validateReconcilePolicy(policy ReconcilePolicy) error {
	if strings.TrimSpace(policy.PaidOrderStatus) == "" {
		return errors.New("reconcile.paidOrderStatus cannot be empty")
	}
	if len(strings.TrimSpace(policy.DefaultCurrency)) != 3 {
		return errors.New("reconcile.defaultCurrency must be a 3 letter code")
	}
	return nil
}
