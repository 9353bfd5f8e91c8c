package options

import (
	genericoptions "github.com/kiosk404/ragrelay/internal/pkg/options"
	"github.com/kiosk404/ragrelay/pkg/utils/cliflag"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

// Options is the full configuration of the ragrelay server.
type Options struct {
	GRPCOptions             *genericoptions.GRPCOptions      `json:"grpc"      mapstructure:"grpc"`
	GenericServerRunOptions *genericoptions.ServerRunOptions `json:"server"    mapstructure:"server"`
	ModelOptions            *genericoptions.ModelOptions     `json:"models"    mapstructure:"models"`
	ChatOptions             *ChatOptions                     `json:"chat"      mapstructure:"chat"`
	StoreOptions            *StoreOptions                    `json:"store"     mapstructure:"store"`
	KnowledgeOptions        *KnowledgeOptions                `json:"knowledge" mapstructure:"knowledge"`
	SQLOptions              *SQLOptions                      `json:"sql"       mapstructure:"sql"`
	ToolsOptions            *ToolsOptions                    `json:"tools"     mapstructure:"tools"`
	MCPOptions              *MCPOptions                      `json:"mcp"       mapstructure:"mcp"`
	AuthOptions             *AuthOptions                     `json:"auth"      mapstructure:"auth"`
	LogOptions              *LogOptions                      `json:"log"       mapstructure:"log"`
}

func (o *Options) Flags() (fss cliflag.NamedFlagSets) {
	o.GRPCOptions.AddFlags(fss.FlagSet("grpc"))
	o.GenericServerRunOptions.AddFlags(fss.FlagSet("generic"))
	o.ModelOptions.AddFlags(fss.FlagSet("models"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.KnowledgeOptions.AddFlags(fss.FlagSet("knowledge"))
	o.SQLOptions.AddFlags(fss.FlagSet("sql"))
	o.ToolsOptions.AddFlags(fss.FlagSet("tools"))
	o.MCPOptions.AddFlags(fss.FlagSet("mcp"))
	o.AuthOptions.AddFlags(fss.FlagSet("auth"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	return fss
}

func NewOptions() *Options {
	return &Options{
		GRPCOptions:             genericoptions.NewGRPCOptions(),
		GenericServerRunOptions: genericoptions.NewServerRunOptions(),
		ModelOptions:            genericoptions.NewModelOptions(),
		ChatOptions:             NewChatOptions(),
		StoreOptions:            NewStoreOptions(),
		KnowledgeOptions:        NewKnowledgeOptions(),
		SQLOptions:              NewSQLOptions(),
		ToolsOptions:            NewToolsOptions(),
		MCPOptions:              NewMCPOptions(),
		AuthOptions:             NewAuthOptions(),
		LogOptions:              NewLogOptions(),
	}
}

// Validate collects the errors of every option group.
func (o *Options) Validate() []error {
	var errs []error
	errs = append(errs, o.GRPCOptions.Validate()...)
	errs = append(errs, o.GenericServerRunOptions.Validate()...)
	errs = append(errs, o.ModelOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.KnowledgeOptions.Validate()...)
	errs = append(errs, o.SQLOptions.Validate()...)
	errs = append(errs, o.AuthOptions.Validate()...)
	return errs
}

func (o *Options) String() string {
	data, _ := json.Marshal(o.redacted())

	return string(data)
}

// redacted is a copy without secrets, fit for logging.
func (o *Options) redacted() *Options {
	cp := *o
	if o.AuthOptions != nil && o.AuthOptions.Token != "" {
		auth := *o.AuthOptions
		auth.Token = "***"
		cp.AuthOptions = &auth
	}
	if o.StoreOptions != nil && o.StoreOptions.Redis.Password != "" {
		store := *o.StoreOptions
		store.Redis.Password = "***"
		cp.StoreOptions = &store
	}
	if o.ModelOptions != nil {
		models := *o.ModelOptions
		models.Providers = make(map[string]*genericoptions.ProviderConfig, len(o.ModelOptions.Providers))
		for id, p := range o.ModelOptions.Providers {
			pc := *p
			if pc.APIKey != "" {
				pc.APIKey = "***"
			}
			models.Providers[id] = &pc
		}
		cp.ModelOptions = &models
	}
	return &cp
}

// Complete set default Options.
func (o *Options) Complete() error {
	return nil
}
