package auditdef

import (
	"fmt"
	"os"

	"github.com/sqldef/auditdef/schema"
	"gopkg.in/yaml.v2"
)

// Config is the optional --config file. Unset fields keep the defaults and
// command line flags override whatever is set here.
type Config struct {
	Root             string `yaml:"root"`
	Dialect          string `yaml:"dialect"`
	Audit            string `yaml:"audit"`
	Single           *bool  `yaml:"single"`
	QuoteIdentifiers *bool  `yaml:"quote_identifiers"`
	Concurrency      *int   `yaml:"concurrency"`
	Case             *struct {
		Table  string `yaml:"table"`
		Column string `yaml:"column"`
	} `yaml:"case"`
}

func ParseConfig(configFile string) (Config, error) {
	if configFile == "" {
		return Config{}, nil
	}
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return Config{}, err
	}
	return ParseConfigString(string(buf))
}

func ParseConfigString(s string) (Config, error) {
	var config Config
	if err := yaml.UnmarshalStrict([]byte(s), &config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Apply copies the fields set in c onto opts.
func (c Config) Apply(opts *Options) error {
	if c.Root != "" {
		opts.Root = c.Root
	}
	if c.Dialect != "" {
		d, err := schema.ParseDialect(c.Dialect)
		if err != nil {
			return err
		}
		opts.Dialect = d
	}
	if c.Audit != "" {
		m, err := schema.ParseAuditMethod(c.Audit)
		if err != nil {
			return err
		}
		opts.Audit = m
	}
	if c.Single != nil {
		opts.Single = *c.Single
	}
	if c.QuoteIdentifiers != nil {
		opts.QuoteIdentifiers = *c.QuoteIdentifiers
	}
	if c.Concurrency != nil {
		opts.Concurrency = *c.Concurrency
	}
	if c.Case != nil {
		if c.Case.Table != "" {
			tc, err := schema.ParseCase(c.Case.Table)
			if err != nil {
				return err
			}
			opts.Case.Table = tc
		}
		if c.Case.Column != "" {
			cc, err := schema.ParseCase(c.Case.Column)
			if err != nil {
				return err
			}
			opts.Case.Column = cc
		}
	}
	return nil
}
