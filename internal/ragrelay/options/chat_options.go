package options

import (
	"fmt"
	"time"

	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/runtime"
	redisStore "github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/store/redis"
	"github.com/spf13/pflag"
)

// ChatOptions tune the orchestrator and the streaming of a turn.
type ChatOptions struct {
	MaxSteps       int           `json:"max-steps"       mapstructure:"max-steps"`
	StepTimeout    time.Duration `json:"step-timeout"    mapstructure:"step-timeout"`
	ChunkRunes     int           `json:"chunk-runes"     mapstructure:"chunk-runes"`
	PollInterval   time.Duration `json:"poll-interval"   mapstructure:"poll-interval"`
	ElementTimeout time.Duration `json:"element-timeout" mapstructure:"element-timeout"`
	RunTimeout     time.Duration `json:"run-timeout"     mapstructure:"run-timeout"`
	MaxHistory     int           `json:"max-history"     mapstructure:"max-history"`
	Policy         string        `json:"policy"          mapstructure:"policy"`
	PolicyPrompt   string        `json:"policy-prompt"   mapstructure:"policy-prompt"`
	Dispatcher     string        `json:"dispatcher"      mapstructure:"dispatcher"`
}

func NewChatOptions() *ChatOptions {
	return &ChatOptions{
		MaxSteps:     runtime.DefaultMaxSteps,
		StepTimeout:  runtime.DefaultStepTimeout,
		ChunkRunes:   runtime.DefaultChunkRunes,
		PollInterval: runtime.DefaultPollInterval,
		RunTimeout:   5 * time.Minute,
		MaxHistory:   20,
		Policy:       chat.PolicyRule,
		Dispatcher:   chat.DispatcherHeuristic,
	}
}

func (o *ChatOptions) Validate() []error {
	var errs []error
	switch o.Policy {
	case chat.PolicyRule, chat.PolicyLLM:
	default:
		errs = append(errs, fmt.Errorf("--chat.policy must be one of rule, llm; got %q", o.Policy))
	}
	switch o.Dispatcher {
	case chat.DispatcherHeuristic, chat.DispatcherLLM, chat.DispatcherNone:
	default:
		errs = append(errs, fmt.Errorf("--chat.dispatcher must be one of heuristic, llm, none; got %q", o.Dispatcher))
	}
	if o.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("--chat.max-steps must be at least 1"))
	}
	if o.StepTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--chat.step-timeout must be positive"))
	}
	return errs
}

func (o *ChatOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MaxSteps, "chat.max-steps", o.MaxSteps, "Maximum tool calls in one turn.")
	fs.DurationVar(&o.StepTimeout, "chat.step-timeout", o.StepTimeout, "Timeout of a single tool call.")
	fs.IntVar(&o.ChunkRunes, "chat.chunk-runes", o.ChunkRunes, "Size of streamed answer chunks in runes.")
	fs.DurationVar(&o.PollInterval, "chat.poll-interval", o.PollInterval, "How often waiting code re-checks for cancellation.")
	fs.DurationVar(&o.ElementTimeout, "chat.element-timeout", o.ElementTimeout, ""+
		"Maximum wait for the next stream event, 0 derives it from --chat.step-timeout.")
	fs.DurationVar(&o.RunTimeout, "chat.run-timeout", o.RunTimeout, "Timeout of a whole turn.")
	fs.IntVar(&o.MaxHistory, "chat.max-history", o.MaxHistory, "Number of earlier messages handed to a turn.")
	fs.StringVar(&o.Policy, "chat.policy", o.Policy, "Action selection policy: rule or llm.")
	fs.StringVar(&o.PolicyPrompt, "chat.policy-prompt", o.PolicyPrompt, "System prompt override of the llm policy.")
	fs.StringVar(&o.Dispatcher, "chat.dispatcher", o.Dispatcher, "Question splitting: heuristic, llm or none.")
}

func (o *ChatOptions) ApplyTo(c *chat.Config) {
	c.MaxSteps = o.MaxSteps
	c.StepTimeout = o.StepTimeout
	c.ChunkRunes = o.ChunkRunes
	c.PollInterval = o.PollInterval
	c.ElementTimeout = o.ElementTimeout
	c.RunTimeout = o.RunTimeout
	c.MaxHistoryMessages = o.MaxHistory
	c.Policy = o.Policy
	c.PolicyPrompt = o.PolicyPrompt
	c.Dispatcher = o.Dispatcher
}

// StoreOptions select where chats are kept.
type StoreOptions struct {
	Type       string             `json:"type"        mapstructure:"type"`
	BoltDBPath string             `json:"boltdb-path" mapstructure:"boltdb-path"`
	Redis      redisStore.Options `json:"redis"       mapstructure:"redis"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{
		Type:       chat.StoreInMemory,
		BoltDBPath: "data/ragrelay.db",
		Redis: redisStore.Options{
			Addr:   "127.0.0.1:6379",
			Prefix: "ragrelay:",
		},
	}
}

func (o *StoreOptions) Validate() []error {
	switch o.Type {
	case chat.StoreInMemory, chat.StoreBoltDB, chat.StoreRedis:
		return nil
	default:
		return []error{fmt.Errorf("--store.type must be one of inmemory, boltdb, redis; got %q", o.Type)}
	}
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Type, "store.type", o.Type, "Chat store: inmemory, boltdb or redis.")
	fs.StringVar(&o.BoltDBPath, "store.boltdb-path", o.BoltDBPath, "BoltDB file of the boltdb store.")
	fs.StringVar(&o.Redis.Addr, "store.redis.addr", o.Redis.Addr, "Address of the redis store.")
	fs.StringVar(&o.Redis.Password, "store.redis.password", o.Redis.Password, "Password of the redis store.")
	fs.IntVar(&o.Redis.DB, "store.redis.db", o.Redis.DB, "Database number of the redis store.")
	fs.StringVar(&o.Redis.Prefix, "store.redis.prefix", o.Redis.Prefix, "Key prefix of the redis store.")
}

func (o *StoreOptions) ApplyTo(c *chat.Config) {
	c.StoreType = o.Type
	c.BoltDBPath = o.BoltDBPath
	c.Redis = o.Redis
}
