package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pariharam/internal/astro"
	"pariharam/internal/chart"
	"pariharam/internal/config"
	"pariharam/internal/dasha"
	"pariharam/internal/db"
	"pariharam/internal/domain"
	"pariharam/internal/metrics"
	"pariharam/internal/migrate"
	"pariharam/internal/repo"
	"pariharam/internal/server"
	"pariharam/internal/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "pariharam",
	Short: "Pariharam CLI",
	Long: `Pariharam routes consultation requests through review to a published report.
Core concepts:
- Workspace: your .pariharam directory holding the database; settings live in pariharam.yml.
- Consultation: one request, flowing submitted -> in_review -> pending_finalization -> completed.
- Roles: requesters submit, specialists draft, supervisors assign and publish.
- Assignment: at most one specialist holds a consultation at a time; reassignment discards the draft.
- Profiles: saved birth data that charts and period timelines are computed from.
- Event log: diary of every transition, view with 'pariharam log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PARIHARAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("role", "requester", "actor role (requester, specialist, supervisor)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("role", rootCmd.PersistentFlags().Lookup("role"))
}

func registerCommands() {
	rootCmd.AddCommand(consultationCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(rosterCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(dashaCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorRole() (string, domain.Role, error) {
	actor := viper.GetString("actor-id")
	role := domain.Role(viper.GetString("role"))
	if !role.Valid() {
		return "", "", fmt.Errorf("--role must be requester, specialist, or supervisor")
	}
	return actor, role, nil
}

func consultationCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "consultation",
		Short: "Manage consultations",
		Long:  "Consultations flow submitted -> in_review -> pending_finalization -> completed. Requesters submit, supervisors assign and publish, specialists draft.",
	}
	c.AddCommand(consultationSubmitCmd())
	c.AddCommand(consultationListCmd())
	c.AddCommand(consultationShowCmd())
	c.AddCommand(consultationAssignCmd())
	c.AddCommand(consultationReassignCmd())
	c.AddCommand(consultationDraftCmd())
	c.AddCommand(consultationPublishCmd())
	return c
}

func consultationSubmitCmd() *cobra.Command {
	var profileRef, narrative string
	var tags []string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a consultation request",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				c, err := e.Submit(ctx, role, workflow.SubmitOptions{
					RequesterID: actor,
					ProfileRef:  profileRef,
					FocusTags:   tags,
					Narrative:   narrative,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&profileRef, "profile", "", "profile id the consultation refers to")
	cmd.Flags().StringArrayVar(&tags, "tag", []string{}, "focus tag (repeatable)")
	cmd.Flags().StringVar(&narrative, "narrative", "", "free-text question or concern")
	return cmd
}

func consultationListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List consultations visible to the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				items, err := e.ListFor(ctx, actor, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "State", "Requester", "Assignee", "Tags"})
				for _, c := range items {
					assignee := ""
					if c.AssigneeID != nil {
						assignee = *c.AssigneeID
					}
					tw.AppendRow(table.Row{c.ID, c.State, c.RequesterID, assignee, strings.Join(c.FocusTags, ",")})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func consultationShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a consultation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				c, err := e.GetFor(ctx, actor, role, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func consultationAssignCmd() *cobra.Command {
	var specialistID string
	cmd := &cobra.Command{
		Use:   "assign <id>",
		Short: "Assign a specialist (supervisor only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if specialistID == "" {
				return fmt.Errorf("--specialist required")
			}
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				c, err := e.Assign(ctx, actor, role, args[0], specialistID)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&specialistID, "specialist", "", "specialist id")
	return cmd
}

func consultationReassignCmd() *cobra.Command {
	var specialistID string
	cmd := &cobra.Command{
		Use:   "reassign <id>",
		Short: "Replace the assigned specialist (supervisor only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if specialistID == "" {
				return fmt.Errorf("--specialist required")
			}
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				c, err := e.Reassign(ctx, actor, role, args[0], specialistID)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&specialistID, "specialist", "", "specialist id")
	return cmd
}

func consultationDraftCmd() *cobra.Command {
	var text, file string
	cmd := &cobra.Command{
		Use:   "draft <id>",
		Short: "Submit the draft report (assigned specialist only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			body, err := textOrFile(text, file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				c, err := e.SubmitDraft(ctx, actor, role, args[0], body)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "draft report text")
	cmd.Flags().StringVar(&file, "file", "", "read draft report from file")
	return cmd
}

func consultationPublishCmd() *cobra.Command {
	var text, file string
	cmd := &cobra.Command{
		Use:   "publish <id>",
		Short: "Publish the final report (supervisor only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, role, err := actorRole()
			if err != nil {
				return err
			}
			body, err := textOrFile(text, file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e workflow.Engine) error {
				c, err := e.Publish(ctx, actor, role, args[0], body)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "final report text")
	cmd.Flags().StringVar(&file, "file", "", "read final report from file")
	return cmd
}

func profileCmd() *cobra.Command {
	p := &cobra.Command{Use: "profile", Short: "Manage birth profiles"}
	p.AddCommand(profileAddCmd())
	p.AddCommand(profileListCmd())
	p.AddCommand(profileDeleteCmd())
	return p
}

func profileAddCmd() *cobra.Command {
	var p domain.Profile
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a birth profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.Name == "" {
				return fmt.Errorf("--name required")
			}
			if _, err := time.Parse("2006-01-02", p.DOB); err != nil {
				return fmt.Errorf("--dob must be YYYY-MM-DD")
			}
			if _, err := time.Parse("15:04", p.TOB); err != nil {
				return fmt.Errorf("--tob must be HH:MM")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p.ID = uuid.New().String()
				p.RequesterID = viper.GetString("actor-id")
				p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
				if err := r.InsertProfile(ctx, p); err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "profile name")
	cmd.Flags().StringVar(&p.DOB, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.TOB, "tob", "", "time of birth (HH:MM)")
	cmd.Flags().StringVar(&p.POB, "pob", "", "place of birth")
	cmd.Flags().Float64Var(&p.Lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&p.Lon, "lon", 0, "longitude")
	return cmd
}

func profileListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the actor's profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProfiles(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "DOB", "TOB", "Place"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.DOB, p.TOB, p.POB})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func profileDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteProfile(ctx, viper.GetString("actor-id"), args[0])
			})
		},
	}
	return cmd
}

func rosterCmd() *cobra.Command {
	r := &cobra.Command{Use: "roster", Short: "Manage the identity roster"}
	r.AddCommand(rosterListCmd())
	r.AddCommand(rosterRegisterCmd())
	return r
}

func rosterListCmd() *cobra.Command {
	var roleFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List roster identities by role",
		RunE: func(cmd *cobra.Command, args []string) error {
			role := domain.Role(roleFilter)
			if !role.Valid() {
				return fmt.Errorf("--role must be requester, specialist, or supervisor")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListByRole(ctx, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Role", "Name", "Email"})
				for _, i := range items {
					tw.AppendRow(table.Row{i.ID, i.Role, i.FullName, i.Email})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&roleFilter, "role", "specialist", "role to list")
	return cmd
}

func rosterRegisterCmd() *cobra.Command {
	var ident domain.Identity
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register or update a roster identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ident.ID == "" {
				return fmt.Errorf("--id required")
			}
			ident.Role = domain.Role(role)
			if !ident.Role.Valid() {
				return fmt.Errorf("--role must be requester, specialist, or supervisor")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				ident.CreatedAt = time.Now().UTC().Format(time.RFC3339)
				if err := r.UpsertIdentity(ctx, ident); err != nil {
					return err
				}
				return printJSONOrTable(ident)
			})
		},
	}
	cmd.Flags().StringVar(&ident.ID, "id", "", "identity id")
	cmd.Flags().StringVar(&role, "role", "", "role")
	cmd.Flags().StringVar(&ident.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&ident.Email, "email", "", "email")
	return cmd
}

func chartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart <profile-id>",
		Short: "Render the chart grid for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComputation(cmd.Context(), args[0], func(res astro.Result) error {
				tokens := make([]chart.Token, 0, len(res.Placements))
				for _, pl := range res.Placements {
					tokens = append(tokens, chart.Token{Name: pl.Name, SignIndex: pl.SignIdx})
				}
				grid, err := chart.Layout(res.Ascendant.SignIdx, tokens)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(grid)
				}
				renderGrid(grid)
				return nil
			})
		},
	}
	return cmd
}

func renderGrid(g chart.Grid) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	for row := 0; row < 4; row++ {
		cells := make(table.Row, 4)
		for col := 0; col < 4; col++ {
			cell := g.Cells[row*4+col]
			if cell.Sign < 0 {
				cells[col] = ""
				continue
			}
			label := chart.SignNames[cell.Sign].EN
			if len(cell.Tokens) > 0 {
				label += "\n" + strings.Join(cell.Tokens, " ")
			}
			cells[col] = label
		}
		tw.AppendRow(cells)
		if row < 3 {
			tw.AppendSeparator()
		}
	}
	tw.Render()
}

func dashaCmd() *cobra.Command {
	var node string
	cmd := &cobra.Command{
		Use:   "dasha <profile-id>",
		Short: "Show the period hierarchy for a profile",
		Long:  "Prints mahadashas with the currently running chain expanded. Use --node to expand one subtree instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withComputation(cmd.Context(), args[0], func(res astro.Result) error {
				tree, err := dasha.Decode(res.Mahadashas)
				if err != nil {
					return err
				}
				if node != "" {
					children := tree.Expand(node)
					if viper.GetBool("json") {
						return printJSON(children)
					}
					for _, p := range children {
						fmt.Printf("%s  %s  %s .. %s\n", p.ID, p.Label, p.Start, p.End)
					}
					return nil
				}
				if viper.GetBool("json") {
					return printJSON(tree.Roots())
				}
				printPeriods(tree, tree.Roots(), "")
				chain := tree.CurrentChain()
				if len(chain) > 0 {
					parts := make([]string, 0, len(chain))
					for _, p := range chain {
						parts = append(parts, p.Label)
					}
					fmt.Printf("\nRunning now: %s\n", strings.Join(parts, " > "))
				}
				return nil
			})
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&node, "node", "", "period node id to expand")
	return cmd
}

// printPeriods walks the tree, descending only into the running chain the
// same way the default disclosure works.
func printPeriods(t *dasha.Tree, periods []dasha.Period, indent string) {
	for _, p := range periods {
		marker := " "
		if p.IsCurrent {
			marker = "*"
		}
		fmt.Printf("%s%s %s  %s .. %s\n", indent, marker, p.Label, p.Start, p.End)
		if dasha.IsExpandedByDefault(p) {
			printPeriods(t, t.Expand(p.ID), indent+"  ")
		}
	}
}

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var consultationID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events for a consultation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if consultationID == "" {
				return fmt.Errorf("--consultation required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.ListEvents(ctx, consultationID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().StringVar(&consultationID, "consultation", "", "consultation id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Service.Listen
			}
			if basePath == "" {
				basePath = cfg.Service.BasePath
			}
			authCfg := server.AuthConfig{
				JWTSecret:            cfg.Auth.JWTSecret,
				AllowDevActorHeaders: cfg.Auth.AllowDevActorHeaders,
			}
			if s := os.Getenv("PARIHARAM_JWT_SECRET"); s != "" {
				authCfg.JWTSecret = s
			}
			if authCfg.JWTSecret == "" && !authCfg.AllowDevActorHeaders {
				return fmt.Errorf("PARIHARAM_JWT_SECRET is required for bearer auth")
			}
			registry := prometheus.NewRegistry()
			m := metrics.New(registry)
			e := workflow.New(conn, cfg, m)
			handler, err := server.New(server.Config{
				Engine:   e,
				Astro:    astro.New(cfg.Astro.EngineURL),
				BasePath: basePath,
				Auth:     authCfg,
				Registry: registry,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Pariharam API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, workflow.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := workflow.New(conn, cfg, nil)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withComputation(ctx context.Context, profileID string, fn func(astro.Result) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	var p domain.Profile
	if err := withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		var err error
		p, err = r.GetProfile(ctx, profileID)
		return err
	}); err != nil {
		return err
	}
	dob, err := time.Parse("2006-01-02", p.DOB)
	if err != nil {
		return fmt.Errorf("profile %s has invalid dob %q", p.ID, p.DOB)
	}
	tob, err := time.Parse("15:04", p.TOB)
	if err != nil {
		return fmt.Errorf("profile %s has invalid tob %q", p.ID, p.TOB)
	}
	client := astro.New(cfg.Astro.EngineURL)
	res, err := client.Calculate(ctx, astro.BirthInput{
		Year:   dob.Year(),
		Month:  int(dob.Month()),
		Day:    dob.Day(),
		Hour:   tob.Hour(),
		Minute: tob.Minute(),
		Lat:    p.Lat,
		Lon:    p.Lon,
	})
	if err != nil {
		return err
	}
	return fn(res)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// textOrFile resolves report content from --text or --file.
func textOrFile(text, file string) (string, error) {
	if text != "" && file != "" {
		return "", fmt.Errorf("use either --text or --file, not both")
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(b), nil
	}
	if text == "" {
		return "", fmt.Errorf("either --text or --file is required")
	}
	return text, nil
}
