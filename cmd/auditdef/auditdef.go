package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"github.com/sqldef/auditdef"
	"github.com/sqldef/auditdef/database"
	"github.com/sqldef/auditdef/database/file"
	"github.com/sqldef/auditdef/database/mysql"
	"github.com/sqldef/auditdef/database/sqlite3"
	"github.com/sqldef/auditdef/schema"
	"github.com/sqldef/auditdef/util"
	"golang.org/x/term"
)

// version and revision are set via -ldflags
var version = "dev"
var revision = "HEAD"

type command struct {
	options  auditdef.Options
	dbConfig database.Config
	// snapshot is a YAML file of live columns used instead of a connection.
	snapshot  string
	inferFile string
	inferName string
	debug     bool
}

type cliOptions struct {
	Root               string `short:"r" long:"root" description:"Directory holding tables/, views/ and sql/" value-name:"dir" default:"db"`
	Dialect            string `short:"d" long:"dialect" description:"SQL dialect (sqlite, mysql)" value-name:"dialect" default:"sqlite"`
	Audit              string `short:"a" long:"audit" description:"Audit method (none, row, column, all)" value-name:"method" default:"none"`
	TableCase          string `long:"table-case" description:"Case of generated table names as type[:join], inferred when omitted" value-name:"case"`
	ColumnCase         string `long:"column-case" description:"Case of generated column names as type[:join], inferred when omitted" value-name:"case"`
	Single             bool   `long:"single" description:"Also write the SQL of each table and view next to its definition"`
	NoSingle           bool   `long:"no-single" description:"Turn off single even when the config file sets it"`
	QuoteIdentifiers   bool   `long:"quote-identifiers" description:"Quote table names as well as column names"`
	NoQuoteIdentifiers bool   `long:"no-quote-identifiers" description:"Turn off quote-identifiers even when the config file sets it"`
	Concurrency        int    `long:"concurrency" description:"Maximum concurrent introspection queries, -1 for no limit" value-name:"n" default:"4"`
	DryRun             bool   `long:"dry-run" description:"Don't run the SQL but just show it"`
	Config             string `long:"config" description:"YAML file to specify: root, dialect, audit, single, quote_identifiers, concurrency, case" value-name:"config_file"`

	User                  string `short:"u" long:"user" description:"MySQL user name" value-name:"user_name" default:"root"`
	Password              string `short:"p" long:"password" description:"MySQL user password, overridden by $MYSQL_PWD" value-name:"password"`
	Host                  string `short:"h" long:"host" description:"Host to connect to the MySQL server" value-name:"host_name" default:"127.0.0.1"`
	Port                  uint   `short:"P" long:"port" description:"Port used for the connection" value-name:"port_num" default:"3306"`
	Socket                string `short:"S" long:"socket" description:"The socket file to use for connection" value-name:"socket"`
	SslMode               string `long:"ssl-mode" description:"SSL connection mode(PREFERRED,REQUIRED,DISABLED)." value-name:"ssl_mode" default:"PREFERRED"`
	SslCa                 string `long:"ssl-ca" description:"File that contains list of trusted SSL Certificate Authorities" value-name:"ssl_ca"`
	Prompt                bool   `long:"password-prompt" description:"Force MySQL user password prompt"`
	EnableCleartextPlugin bool   `long:"enable-cleartext-plugin" description:"Enable/disable the clear text authentication plugin"`

	Infer     string `long:"infer" description:"Draft tables/_<name>.json from a sample JSON or YAML object and exit" value-name:"sample_file"`
	InferName string `long:"infer-name" description:"Table name for --infer, defaults to the sample file name" value-name:"table"`
	Debug     bool   `long:"debug" description:"Dump the compiled table models"`
	Help      bool   `long:"help" description:"Show this help"`
	Version   bool   `long:"version" description:"Show this version"`
}

// Return parsed options. Flags given on the command line win over the config
// file, which wins over flag defaults.
func parseOptions(args []string) (*command, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[OPTIONS] [database|snapshot.yml]"
	args, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Printf("%s (%s)\n", version, revision)
		os.Exit(0)
	}

	isSet := func(name string) bool {
		option := parser.FindOptionByLongName(name)
		return option != nil && option.IsSet()
	}

	cmd := &command{
		inferFile: opts.Infer,
		inferName: opts.InferName,
		debug:     opts.Debug,
	}
	o := &cmd.options
	o.Root = opts.Root
	if o.Dialect, err = schema.ParseDialect(opts.Dialect); err != nil {
		return nil, err
	}
	if o.Audit, err = schema.ParseAuditMethod(opts.Audit); err != nil {
		return nil, err
	}
	o.Concurrency = opts.Concurrency

	config, err := auditdef.ParseConfig(opts.Config)
	if err != nil {
		return nil, err
	}
	if err := config.Apply(o); err != nil {
		return nil, err
	}

	if isSet("root") {
		o.Root = opts.Root
	}
	if isSet("dialect") {
		o.Dialect, _ = schema.ParseDialect(opts.Dialect)
	}
	if isSet("audit") {
		o.Audit, _ = schema.ParseAuditMethod(opts.Audit)
	}
	if isSet("concurrency") {
		o.Concurrency = opts.Concurrency
	}
	if opts.TableCase != "" {
		if o.Case.Table, err = schema.ParseCase(opts.TableCase); err != nil {
			return nil, err
		}
	}
	if opts.ColumnCase != "" {
		if o.Case.Column, err = schema.ParseCase(opts.ColumnCase); err != nil {
			return nil, err
		}
	}
	if o.Single, err = switchOption("single", o.Single, opts.Single, opts.NoSingle); err != nil {
		return nil, err
	}
	if o.QuoteIdentifiers, err = switchOption("quote-identifiers", o.QuoteIdentifiers, opts.QuoteIdentifiers, opts.NoQuoteIdentifiers); err != nil {
		return nil, err
	}
	o.DryRun = opts.DryRun

	if len(args) > 1 {
		return nil, fmt.Errorf("multiple databases are given: %v", args)
	}
	var databaseName string
	if len(args) == 1 {
		databaseName = args[0]
	}
	if ext := strings.ToLower(filepath.Ext(databaseName)); ext == ".yml" || ext == ".yaml" {
		cmd.snapshot = databaseName
		o.DryRun = true
		databaseName = ""
	}
	if cmd.snapshot == "" && cmd.inferFile == "" {
		switch o.Dialect {
		case schema.DialectSQLite:
			if databaseName == "" {
				databaseName = filepath.Join(o.Root, "index.db")
			}
		case schema.DialectMySQL:
			if databaseName == "" {
				return nil, fmt.Errorf("no database is specified")
			}
		}
	}

	switch strings.ToLower(opts.SslMode) {
	case "disabled":
		opts.SslMode = "false"
	case "preferred":
		opts.SslMode = "preferred"
	case "required":
		opts.SslMode = "true"
	case "custom":
		opts.SslMode = "custom"
	default:
		return nil, fmt.Errorf("wrong value for ssl-mode is given: %v", opts.SslMode)
	}

	password, ok := os.LookupEnv("MYSQL_PWD")
	if !ok {
		password = opts.Password
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return nil, err
		}
		fmt.Println()
		password = string(pass)
	}

	cmd.dbConfig = database.Config{
		DbName:                     databaseName,
		User:                       opts.User,
		Password:                   password,
		Host:                       opts.Host,
		Port:                       int(opts.Port),
		Socket:                     opts.Socket,
		MySQLEnableCleartextPlugin: opts.EnableCleartextPlugin,
		SslMode:                    opts.SslMode,
		SslCa:                      opts.SslCa,
	}
	return cmd, nil
}

// switchOption resolves a boolean option that the config file may set and
// that --name or --no-name override.
func switchOption(name string, configured, on, off bool) (bool, error) {
	switch {
	case on && off:
		return false, fmt.Errorf("--%s and --no-%s cannot be given together", name, name)
	case on:
		return true, nil
	case off:
		return false, nil
	default:
		return configured, nil
	}
}

func (c *command) openDatabase() (database.Database, error) {
	if c.snapshot != "" {
		return file.NewDatabase(c.snapshot)
	}
	switch c.options.Dialect {
	case schema.DialectMySQL:
		return mysql.NewDatabase(c.dbConfig)
	default:
		if err := os.MkdirAll(filepath.Dir(c.dbConfig.DbName), 0o755); err != nil {
			return nil, err
		}
		slog.Debug("Opening SQLite database", "driver", sqlite3.DriverName(), "path", c.dbConfig.DbName)
		return sqlite3.NewDatabase(c.dbConfig)
	}
}

func (c *command) infer() (string, error) {
	sample, err := auditdef.ReadSample(c.inferFile)
	if err != nil {
		return "", err
	}
	name := c.inferName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(c.inferFile), filepath.Ext(c.inferFile))
	}
	return auditdef.InferTable(c.options.Root, name, sample)
}

func (c *command) run(ctx context.Context) error {
	if c.inferFile != "" {
		path, err := c.infer()
		if err != nil {
			return err
		}
		fmt.Printf("-- Wrote %s --\n", path)
		return nil
	}

	db, err := c.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := auditdef.Run(ctx, db, c.options)
	if err != nil {
		return err
	}
	if c.debug {
		pp.Fprintln(os.Stderr, result.Tables, result.Views)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d definition(s) failed to compile", len(result.Failed))
	}
	return nil
}

func main() {
	closeLog := util.InitSlog()

	cmd, err := parseOptions(os.Args[1:])
	if err != nil {
		closeLog()
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cmd.run(ctx)
	stop()
	closeLog()
	if err != nil {
		log.Fatal(err)
	}
}
