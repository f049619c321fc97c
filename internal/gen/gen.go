package gen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ftson/ftson/internal/configshape"
	"github.com/ftson/ftson/internal/logger"
	"github.com/ftson/ftson/internal/registry"
	"github.com/ftson/ftson/internal/settings"
	"github.com/ftson/ftson/internal/typeshape"
	"github.com/ftson/ftson/internal/validate"
)

// New returns the root command. Run without a subcommand it generates the
// files declared in the declaration file.
func New() *cobra.Command {
	var s *settings.Settings

	cmd := &cobra.Command{
		Use:   "ftson",
		Short: "Generate specialized JSON serializers for Go types",
		Long: `ftson reads a declaration file listing Go types and their serialization
configuration, and writes one hand-shaped JSON encoding function per entry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if s, err = settings.Load(".", cmd.Flags()); err != nil {
				return err
			}
			return logger.Initialize(s.Log.JSON, s.Log.Level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			g := newGenerator(s, cmd)
			stats, err := g.Process()
			if err != nil {
				return err
			}
			if err := g.Gen(); err != nil {
				return err
			}
			logger.Logger.Infow("Generation finished",
				"files", len(g.Files),
				"generated", stats.Generated,
				"skipped", stats.Skipped,
				"rejected", stats.Rejected,
			)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringP("project", "p", ".", "Module directory the declared types are loaded from")
	flags.StringP("config", "c", "ftson.go", "Declaration file (.go, .yaml, .yml, .json or .toml)")
	flags.String("var", registry.DefaultVarName, "Variable holding the registrations in a Go declaration file")
	flags.String("package", "", "Package clause of generated files (default: inferred from the output directory)")
	flags.Bool("skip-rejected", false, "Generate the remaining functions when some configurations are rejected")
	flags.Bool("log-json", false, "Log as JSON")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	cmd.AddCommand(newCheck(&s), newShape(&s))
	return cmd
}

func newGenerator(s *settings.Settings, cmd *cobra.Command) *Generator {
	return &Generator{
		Project:      s.Project,
		Declaration:  s.Config,
		VarName:      s.Var,
		Package:      s.Package,
		SkipRejected: s.SkipRejected,
		Stdout:       cmd.OutOrStdout(),
	}
}

func newCheck(s **settings.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report generated files that are out of date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := newGenerator(*s, cmd)
			if _, err := g.Process(); err != nil {
				return err
			}
			stale, err := g.Stale()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, target := range stale {
				fmt.Fprintf(out, "❌ Stale: %s\n", target)
			}
			if len(stale) > 0 {
				return errors.WithHint(errors.Newf("%d of %d files are out of date", len(stale), len(g.Files)),
					"run ftson to regenerate them")
			}
			fmt.Fprintf(out, "✅ Up to date: %d files\n", len(g.Files))
			return nil
		},
	}
}

func newShape(s **settings.Settings) *cobra.Command {
	var check string

	cmd := &cobra.Command{
		Use:   "shape <import/path.Type>",
		Short: "Print the configuration accepted by a type as JSON Schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := configShape((*s).Project, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if check == "" {
				doc, err := configshape.MarshalSchema(cs)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(doc))
				return nil
			}
			return checkDocument(out, cs, check)
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "Validate a YAML or JSON configuration document against the type")
	return cmd
}

// configShape loads the type named by ref and resolves its configuration
// shape. A bare type name refers to the package in the project directory.
func configShape(project, ref string) (*configshape.Shape, error) {
	dir, err := filepath.Abs(project)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", project)
	}
	var defaultPkg string
	if mod, err := registry.FindModule(dir); err == nil {
		defaultPkg, _ = mod.PackagePath(dir)
	}
	pkgPath, name := registry.SplitTypeRef(ref, defaultPkg)

	u := typeshape.NewUniverse()
	in := typeshape.NewIntrospector(u, dir)
	if err := in.Load(pkgPath); err != nil {
		return nil, err
	}
	shape, err := in.Find(pkgPath, name)
	if err != nil {
		return nil, err
	}
	return configshape.NewResolver(u).Resolve(shape), nil
}

// checkDocument runs a configuration document through both the JSON Schema
// checker and the validator.
func checkDocument(out io.Writer, cs *configshape.Shape, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to read %s", path), ErrIO)
	}
	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return errors.Wrapf(err, "can't parse file %q", path)
	}
	doc, err := registry.Normalize(decoded)
	if err != nil {
		return errors.Wrapf(err, "%s", path)
	}

	checker, err := configshape.NewChecker(cs)
	if err != nil {
		return err
	}
	problems := checker.Check(doc)
	for _, p := range problems {
		fmt.Fprintf(out, "schema: %s\n", p)
	}

	_, verr := validate.Validate(cs, doc)
	if rs, ok := validate.AsRejections(verr); ok {
		for _, r := range rs {
			fmt.Fprintf(out, "config: %s\n", r)
		}
	}

	if len(problems) > 0 || verr != nil {
		return errors.Mark(errors.Newf("%s does not fit %s", path, cs), validate.ErrConfigShapeRejected)
	}
	fmt.Fprintf(out, "✅ %s fits %s\n", path, cs)
	return nil
}
