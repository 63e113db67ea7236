package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"matrixdesk/app"
	"matrixdesk/app/api"
	"matrixdesk/app/console"
	"matrixdesk/app/export"
	"matrixdesk/app/fileloader"
	"matrixdesk/app/logger"
	"matrixdesk/app/mtx"
	"matrixdesk/app/settings"
)

// shownError is an error the presenter has already shown to the user.
type shownError struct{ error }

func (e *shownError) Unwrap() error { return e.error }

func shown(err error) error {
	if err == nil {
		return nil
	}
	return &shownError{err}
}

// cli holds the persistent flags and the services built from them.
type cli struct {
	settingsPath string
	server       string
	login        string
	logMode      string
	quiet        bool

	svc *settings.SettingsService
	log *logger.Logger
}

// effectiveSettings reads the settings file and applies flag overrides.
func (c *cli) effectiveSettings() (settings.Settings, error) {
	svc, err := settings.NewSettingsService(c.settingsPath)
	if err != nil {
		return settings.Settings{}, err
	}
	c.svc = svc
	s, err := svc.GetSettings()
	if err != nil {
		return s, fmt.Errorf("failed to read settings %s: %w", svc.Path(), err)
	}
	if id, err := svc.EnsureInstanceID(); err == nil {
		s.InstanceID = id
	} else {
		// Read-only settings location: use a per-process id.
		s.InstanceID = uuid.NewString()
	}
	if c.server != "" {
		s.ServerURL = c.server
	}
	if c.login != "" {
		s.Login = c.login
	}
	if c.logMode != "" {
		s.LogMode = c.logMode
	}
	return s, nil
}

// open builds the App for one command. Callers defer c.close.
func (c *cli) open(cmd *cobra.Command) (*app.App, error) {
	s, err := c.effectiveSettings()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(s.LogMode)
	if err != nil {
		return nil, err
	}
	c.log = log

	presenter := console.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), export.TableOptions{
		MaxRows:   s.PreviewMaxRows,
		MaxCols:   s.PreviewMaxCols,
		Precision: s.PreviewPrecision,
	})
	presenter.Quiet = c.quiet

	a, err := app.NewApp(app.Config{Settings: s, Presenter: presenter, Logger: log})
	if err != nil {
		return nil, err
	}
	a.Startup(cmd.Context())
	c.svc.SetCacheManager(a)
	log.Debug("app ready", "server", s.ServerURL, "instance", s.InstanceID, "command", cmd.Name())
	return a, nil
}

func (c *cli) close() {
	if c.log != nil {
		c.log.Sync()
	}
}

// autoLogin logs in with the password from the environment when one is set.
// The session only lives for this process.
func (c *cli) autoLogin(cmd *cobra.Command, a *app.App) error {
	password := os.Getenv(envPassword)
	login := a.Settings().Login
	if password == "" || login == "" {
		return nil
	}
	_, err := a.Login(cmd.Context(), login, password)
	return shown(err)
}

func readPassword(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	if p := os.Getenv(envPassword); p != "" {
		return p, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *cli) runLogin(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	s, err := a.Login(cmd.Context(), args[0], password)
	if err != nil {
		return shown(err)
	}
	if remember, _ := cmd.Flags().GetBool("remember"); remember {
		if err := c.svc.Set("login", s.Login); err != nil {
			return fmt.Errorf("failed to remember login: %w", err)
		}
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "Session expires %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (c *cli) runRegister(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	req := api.RegisterRequest{Name: name, Email: email, Login: a.Settings().Login}
	if req.Password, err = readPassword(cmd); err != nil {
		return err
	}
	_, err = a.Register(cmd.Context(), req)
	return shown(err)
}

func (c *cli) runPreview(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	var tab *app.MatrixTab
	if args[0] == stdinArg {
		tab, err = a.PreviewStream(cmd.Context(), "stdin", cmd.InOrStdin())
	} else {
		tab, err = a.Preview(cmd.Context(), args[0])
	}
	if err != nil {
		return shown(err)
	}
	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		name := strings.TrimSuffix(tab.File.Name, filepath.Ext(tab.File.Name))
		if err := a.ExportXLSX(path, export.GridSheets(name, tab.Result.Grid)); err != nil {
			return shown(err)
		}
	}
	if cp, _ := cmd.Flags().GetBool("copy"); cp {
		return shown(a.CopyToClipboard())
	}
	return nil
}

func (c *cli) runUpload(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()
	if err := c.autoLogin(cmd, a); err != nil {
		return err
	}

	if preview, _ := cmd.Flags().GetBool("preview"); preview {
		_, _, err = a.LoadAndUpload(cmd.Context(), args[0])
	} else {
		_, err = a.Upload(cmd.Context(), args[0])
	}
	return shown(err)
}

func (c *cli) runList(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()
	if err := c.autoLogin(cmd, a); err != nil {
		return err
	}

	list, err := a.ListMatrices(cmd.Context(), "")
	if err != nil {
		return shown(err)
	}
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No matrices stored")
		return nil
	}
	for _, m := range list {
		if m.FileID != "" {
			fmt.Fprintf(out, "%s\t%s\n", m.Filename, m.FileID)
		} else {
			fmt.Fprintln(out, m.Filename)
		}
	}
	return nil
}

func (c *cli) runInvert(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()
	if err := c.autoLogin(cmd, a); err != nil {
		return err
	}

	res, err := a.Invert(cmd.Context(), args[0])
	if err != nil {
		return shown(err)
	}
	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		return shown(a.ExportXLSX(path, export.InverseSheets(res)))
	}
	return nil
}

func (c *cli) runDecompose(cmd *cobra.Command, args []string) error {
	alg, _ := cmd.Flags().GetString("algorithm")
	algorithm, err := api.ParseAlgorithm(alg)
	if err != nil {
		return err
	}
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()
	if err := c.autoLogin(cmd, a); err != nil {
		return err
	}

	var results []api.WorkerResult
	if local, _ := cmd.Flags().GetBool("local"); local {
		w, err := a.DecomposeLocal(cmd.Context(), args[0], algorithm)
		if err != nil {
			return shown(err)
		}
		results = []api.WorkerResult{*w}
	} else {
		results, err = a.Decompose(cmd.Context(), args[0], algorithm)
		if err != nil {
			return shown(err)
		}
	}

	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		sheets := export.DecompositionSheets(results)
		if len(sheets) == 0 {
			return fmt.Errorf("no worker produced a decomposition to export")
		}
		return shown(a.ExportXLSX(path, sheets))
	}
	return nil
}

func (c *cli) runStatus(cmd *cobra.Command, args []string) error {
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	st, err := a.Status(cmd.Context())
	if err != nil {
		return shown(err)
	}
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, st)
	}
	fmt.Fprintf(out, "%s: %s\n", a.Client().BaseURL(), st.Status)
	for _, k := range sortedKeys(st.Components) {
		mark := "ok"
		if !st.Components[k] {
			mark = "FAILED"
		}
		fmt.Fprintf(out, "  %s: %s\n", k, mark)
	}
	for _, k := range sortedKeys(st.Details) {
		fmt.Fprintf(out, "  %s: %s\n", k, st.Details[k])
	}
	return nil
}

func (c *cli) runGenerate(cmd *cobra.Command, args []string) error {
	rows, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid rows %q: %w", args[0], err)
	}
	cols, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid cols %q: %w", args[1], err)
	}
	fieldName, _ := cmd.Flags().GetString("field")
	var field mtx.Field
	switch strings.ToLower(fieldName) {
	case "integer":
		field = mtx.FieldInteger
	case "real":
		field = mtx.FieldReal
	default:
		return fmt.Errorf("invalid field %q (want integer or real)", fieldName)
	}

	opts := mtx.DefaultRandomOptions()
	flags := cmd.Flags()
	opts.Density, _ = flags.GetFloat64("density")
	opts.Min, _ = flags.GetInt("min")
	opts.Max, _ = flags.GetInt("max")
	opts.Symmetric, _ = flags.GetBool("symmetric")
	opts.Seed, _ = flags.GetUint64("seed")

	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	output, _ := flags.GetString("output")
	if output == "" {
		return a.Generate(cmd.OutOrStdout(), rows, cols, field, opts)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := a.Generate(f, rows, cols, field, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *cli) runDiscover(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	a, err := c.open(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	var opts fileloader.DirectoryDiscoveryOptions
	opts.Pattern, _ = cmd.Flags().GetString("pattern")
	opts.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	opts.MaxFiles, _ = cmd.Flags().GetInt("max")

	info, err := a.Discover(dir, opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, f := range info.Files {
		rel, err := filepath.Rel(info.RootPath, f)
		if err != nil {
			rel = f
		}
		fmt.Fprintln(out, rel)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d file(s), %d bytes\n", info.TotalFiles, info.TotalSize)
	if withHash, _ := cmd.Flags().GetBool("hash"); withHash && info.TotalFiles > 0 {
		h, err := fileloader.CalculateDirectoryHash(info)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "hash: %s\n", h)
	}
	return nil
}

func (c *cli) runSettingsShow(cmd *cobra.Command, args []string) error {
	s, err := c.effectiveSettings()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", c.svc.Path())
	for _, k := range append(settings.Keys(), "instance_id") {
		v, err := s.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", k, v)
	}
	return nil
}

func (c *cli) runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settings.NewSettingsService(c.settingsPath)
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], svc.Path())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
