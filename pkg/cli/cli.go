package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong"
	"github.com/memesong/memesong/pkg/cmd/batch"
	"github.com/memesong/memesong/pkg/cmd/generate"
	"github.com/memesong/memesong/pkg/cmd/history"
	"github.com/memesong/memesong/pkg/cmd/key"
	"github.com/memesong/memesong/pkg/cmd/migrate"
	"github.com/memesong/memesong/pkg/cmd/web"
	"github.com/memesong/memesong/pkg/llm"
	"github.com/memesong/memesong/pkg/ocr"
	"github.com/memesong/memesong/pkg/ocr/tesseract"
	"github.com/memesong/memesong/pkg/preset"
)

const envPrefix = "MEMESONG"

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("memesong", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "memesong [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newKeyCommand(),
			newPresetsCommand(),
			newGenerateCommand(),
			newBatchCommand(),
			newHistoryCommand(),
			newWebCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "memesong version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix(envPrefix),
	}
}

// recognizers are the OCR backends that need native libraries.
var recognizers = map[string]memesong.RecognizerFunc{
	memesong.OCRTesseract: func(log logrus.FieldLogger) ocr.Recognizer {
		return tesseract.New(log)
	},
}

func serviceFlags(fs *flag.FlagSet, cfg *memesong.Config) {
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 2*time.Minute, "http timeout")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres), empty to run without history")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	fs.StringVar(&cfg.Key, "key", os.Getenv("XAI_API_KEY"), "xAI api key (defaults to XAI_API_KEY, then to the stored key)")
	fs.StringVar(&cfg.Account, "account", memesong.DefaultAccount, "account of the stored key")
	fs.StringVar(&cfg.BaseURL, "base-url", llm.DefaultBaseURL, "chat completions base url")
	fs.StringVar(&cfg.Model, "model", llm.DefaultModel, "model used to write songs")
	fs.StringVar(&cfg.VisionModel, "vision-model", llm.DefaultVisionModel, "model used by the vision ocr backend")
	fs.StringVar(&cfg.OCR, "ocr", memesong.OCRTesseract, "ocr backend (tesseract, vision)")
	fs.StringVar(&cfg.Language, "lang", ocr.DefaultLanguage, "ocr language")
	cfg.Recognizers = recognizers
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("memesong %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "create or update the database tables",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newKeyCommand() *ffcli.Command {
	cmd := "key"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &key.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.StringVar(&cfg.Account, "account", memesong.DefaultAccount, "account name")
	fs.StringVar(&cfg.Value, "value", "", "xAI api key")
	fs.BoolVar(&cfg.Delete, "delete", false, "delete the stored key")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("memesong %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "store the xAI api key",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return key.Run(ctx, cfg)
		},
	}
}

func newPresetsCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "presets",
		ShortUsage: "memesong presets",
		ShortHelp:  "list the style presets",
		Exec: func(ctx context.Context, args []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, p := range preset.All() {
				fmt.Fprintf(tw, "%s\t%s %s\t%s\n", p.ID, p.Emoji, p.Name, p.Description)
			}
			return tw.Flush()
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}
	serviceFlags(fs, &cfg.Config)

	fs.StringVar(&cfg.Image, "image", "", "screenshot to read the post from")
	fs.StringVar(&cfg.Text, "text", "", "post text or extra direction when an image is given")
	fs.StringVar(&cfg.Preset, "preset", preset.Default().ID, "style preset")
	fs.StringVar(&cfg.Output, "output", "", "output file (.json, .yaml, .txt, .md), stdout if empty")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("memesong %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "turn a screenshot or text into a song",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.Text == "" && len(args) > 0 {
				cfg.Text = strings.Join(args, " ")
			}
			return generate.Run(ctx, cfg)
		},
	}
}

func newBatchCommand() *ffcli.Command {
	cmd := "batch"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &batch.Config{}
	serviceFlags(fs, &cfg.Config)

	fs.StringVar(&cfg.Input, "input", "", "input file (.csv or .json) with image, text and preset columns")
	fs.StringVar(&cfg.Output, "output", "songs", "output folder")
	fs.StringVar(&cfg.Preset, "preset", preset.Default().ID, "default style preset")
	fs.IntVar(&cfg.Limit, "limit", 0, "maximum number of songs")
	fs.IntVar(&cfg.MaxErrors, "max-errors", 3, "stop after this many consecutive errors")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("memesong %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "generate songs for a list of posts",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if cfg.Input == "" {
				return errors.New("batch: input is required")
			}
			return batch.Run(ctx, cfg)
		},
	}
}

func newHistoryCommand() *ffcli.Command {
	cmd := "history"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &history.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.IntVar(&cfg.Page, "page", 1, "page number")
	fs.IntVar(&cfg.Size, "size", 50, "page size")
	fs.StringVar(&cfg.Preset, "preset", "", "filter by preset")
	fs.StringVar(&cfg.Output, "output", "", "export to a csv file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("memesong %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "list generated songs",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return history.Run(ctx, cfg)
		},
	}
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &web.Config{}
	serviceFlags(fs, &cfg.Config)

	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fs.Int64Var(&cfg.MaxUpload, "max-upload", 10<<20, "maximum upload size in bytes")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "credentials to use (semicolon separated) Example: user1:pass1;user2:pass2")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("memesong %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "serve the json api",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return web.Serve(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
