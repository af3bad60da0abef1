package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/guardguys-scheduler/internal/client"
	"github.com/noah-isme/guardguys-scheduler/internal/cron"
	"github.com/noah-isme/guardguys-scheduler/internal/models"
	"github.com/noah-isme/guardguys-scheduler/internal/service"
	"github.com/noah-isme/guardguys-scheduler/pkg/config"
	"github.com/noah-isme/guardguys-scheduler/pkg/dateutil"
	appErrors "github.com/noah-isme/guardguys-scheduler/pkg/errors"
	"github.com/noah-isme/guardguys-scheduler/pkg/export"
	"github.com/noah-isme/guardguys-scheduler/pkg/storage"
)

const clockLayout = "15:04"

const usage = `usage: schedulectl <command> [flags]

commands:
  login          sign in and show the session
  members        list members
  member-add     create a member
  member-edit    change a member
  member-delete  remove a member
  week           list the events of a week
  day            list the events of a day
  event-add      schedule an event
  event-edit     change an event
  event-delete   remove an event
  export         write a week as csv or pdf
  watch          refresh the current week periodically
`

type app struct {
	auth     *service.AuthService
	members  *service.MemberService
	schedule *service.ScheduleService
	exporter *service.ExportService
	metrics  *service.MetricsService
	files    *storage.LocalStorage
	cfg      *config.Config
	logger   *zap.Logger
	out      io.Writer
	now      func() time.Time
}

func newApp(cfg *config.Config, api *client.Client, weekCache *service.CacheService, metrics *service.MetricsService, files *storage.LocalStorage, logger *zap.Logger, out io.Writer) *app {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &app{
		auth:     service.NewAuthService(api, nil, logger),
		members:  service.NewMemberService(api, nil, logger),
		schedule: service.NewScheduleService(api, weekCache, nil, logger),
		exporter: service.NewExportService(logger, export.NewCSVExporter(), export.NewPDFExporter()),
		metrics:  metrics,
		files:    files,
		cfg:      cfg,
		logger:   logger,
		out:      out,
		now:      time.Now,
	}
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return 2
	}

	commands := map[string]func(context.Context, []string) error{
		"login":         a.login,
		"members":       a.listMembers,
		"member-add":    a.addMember,
		"member-edit":   a.editMember,
		"member-delete": a.deleteMember,
		"week":          a.week,
		"day":           a.day,
		"event-add":     a.addEvent,
		"event-edit":    a.editEvent,
		"event-delete":  a.deleteEvent,
		"export":        a.export,
		"watch":         a.watchWeek,
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	err := cmd(ctx, args[1:])
	if a.metrics != nil {
		snapshot := a.metrics.Snapshot()
		a.logger.Debug("api activity",
			zap.Uint64("calls", snapshot.APICalls),
			zap.Uint64("failures", snapshot.APIFailures),
			zap.Float64("avg_ms", snapshot.AverageAPIDurationMs),
			zap.Float64("cache_hit_ratio", snapshot.CacheHitRatio))
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(a.out, "error: %s\n", describe(err))
		a.logger.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
		return 1
	}
	return 0
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "member email")
	password := fs.String("password", "", "member password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	session, err := a.auth.Login(ctx, models.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	role := "member"
	if session.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(a.out, "signed in as %s (id %d, %s)\n", session.Username, session.UserID, role)
	return nil
}

func (a *app) listMembers(ctx context.Context, args []string) error {
	if err := a.flags("members").Parse(args); err != nil {
		return err
	}
	members, err := a.members.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tADMIN")
	for _, m := range members {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", m.IDValue(), m.Username, m.Email, m.IsAdmin)
	}
	return tw.Flush()
}

type memberFlags struct {
	fs       *flag.FlagSet
	username *string
	email    *string
	password *string
	admin    *bool
}

func (a *app) memberFlags(name string) memberFlags {
	fs := a.flags(name)
	return memberFlags{
		fs:       fs,
		username: fs.String("username", "", "member username"),
		email:    fs.String("email", "", "member email"),
		password: fs.String("password", "", "member password"),
		admin:    fs.Bool("admin", false, "grant admin rights"),
	}
}

// payload includes only the flags given on the command line.
func (m memberFlags) payload() models.UserPayload {
	var payload models.UserPayload
	m.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "username":
			payload.Username = m.username
		case "email":
			payload.Email = m.email
		case "password":
			payload.Password = m.password
		case "admin":
			payload.IsAdmin = m.admin
		}
	})
	return payload
}

func (a *app) addMember(ctx context.Context, args []string) error {
	mf := a.memberFlags("member-add")
	if err := mf.fs.Parse(args); err != nil {
		return err
	}
	payload := mf.payload()
	if payload.IsAdmin == nil {
		payload.IsAdmin = mf.admin
	}
	if err := a.members.Create(ctx, payload); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "member %s added\n", *mf.username)
	return nil
}

func (a *app) editMember(ctx context.Context, args []string) error {
	mf := a.memberFlags("member-edit")
	id := mf.fs.Int("id", 0, "member id")
	if err := mf.fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("-id is required")
	}
	if err := a.members.Update(ctx, *id, mf.payload()); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "member %d updated\n", *id)
	return nil
}

func (a *app) deleteMember(ctx context.Context, args []string) error {
	fs := a.flags("member-delete")
	id := fs.Int("id", 0, "member id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("-id is required")
	}
	if err := a.members.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "member %d deleted\n", *id)
	return nil
}

func (a *app) week(ctx context.Context, args []string) error {
	fs := a.flags("week")
	date := fs.String("date", "", "any day of the week, MM-dd-yyyy (default today)")
	force := fs.Bool("force", false, "ignore the week cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	anchor, err := a.parseDay(*date)
	if err != nil {
		return err
	}

	week, err := a.schedule.WeekEvents(ctx, anchor, *force)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Week of %s", dateutil.LocalDateString(dateutil.FirstDayOfWeek(anchor)))
	if week.FromCache {
		fmt.Fprint(a.out, " (cached)")
	}
	fmt.Fprintln(a.out)
	return a.printEvents(week.Events)
}

func (a *app) day(ctx context.Context, args []string) error {
	fs := a.flags("day")
	date := fs.String("date", "", "day, MM-dd-yyyy (default today)")
	force := fs.Bool("force", false, "ignore the week cache")
	if err := fs.Parse(args); err != nil {
		return err
	}
	day, err := a.parseDay(*date)
	if err != nil {
		return err
	}

	events, err := a.schedule.DayEvents(ctx, day, *force)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, dateutil.DayLabel(day))
	return a.printEvents(events)
}

type eventFlags struct {
	fs     *flag.FlagSet
	title  *string
	date   *string
	start  *string
	end    *string
	onsite *bool
	notes  *string
	user   *int
}

func (a *app) eventFlags(name string) eventFlags {
	fs := a.flags(name)
	return eventFlags{
		fs:     fs,
		title:  fs.String("title", "", "event title"),
		date:   fs.String("date", "", "day, MM-dd-yyyy (default today)"),
		start:  fs.String("start", "", "start time, HH:MM (default 08:00)"),
		end:    fs.String("end", "", "end time, HH:MM (default one hour after start)"),
		onsite: fs.Bool("onsite", false, "event is onsite"),
		notes:  fs.String("notes", "", "free-form notes"),
		user:   fs.Int("user", models.Unassigned, "assignee member id, -1 for nobody"),
	}
}

func (ef eventFlags) visited() map[string]bool {
	seen := make(map[string]bool)
	ef.fs.Visit(func(f *flag.Flag) { seen[f.Name] = true })
	return seen
}

func (a *app) addEvent(ctx context.Context, args []string) error {
	ef := a.eventFlags("event-add")
	if err := ef.fs.Parse(args); err != nil {
		return err
	}
	day, err := a.parseDay(*ef.date)
	if err != nil {
		return err
	}

	from := dateutil.DefaultAppointmentTime(day)
	if *ef.start != "" {
		if from, err = atClock(day, *ef.start); err != nil {
			return err
		}
	}
	to := from.Add(time.Hour)
	if *ef.end != "" {
		if to, err = atClock(day, *ef.end); err != nil {
			return err
		}
	}

	draft := models.EventDraft{
		Title:  *ef.title,
		Onsite: *ef.onsite,
		From:   from,
		To:     to,
		Notes:  *ef.notes,
		UserID: assigneeFlag(*ef.user),
	}
	if err := a.schedule.Create(ctx, draft); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "event %q scheduled %s %s-%s\n", draft.Title, dateutil.LocalDateString(from), from.Format(clockLayout), to.Format(clockLayout))
	return nil
}

func (a *app) editEvent(ctx context.Context, args []string) error {
	ef := a.eventFlags("event-edit")
	id := ef.fs.Int("id", 0, "event id")
	week := ef.fs.String("week", "", "any day of the week holding the event, MM-dd-yyyy (default today)")
	if err := ef.fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("-id is required")
	}
	anchor, err := a.parseDay(*week)
	if err != nil {
		return err
	}

	result, err := a.schedule.WeekEvents(ctx, anchor, true)
	if err != nil {
		return err
	}
	var original *models.Event
	for i := range result.Events {
		if result.Events[i].ID == *id {
			original = &result.Events[i]
			break
		}
	}
	if original == nil {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("event %d not in week of %s", *id, dateutil.LocalDateString(dateutil.FirstDayOfWeek(anchor))))
	}

	draft, err := applyEventFlags(service.EditDraft(*original), ef)
	if err != nil {
		return err
	}
	changed, err := a.schedule.Update(ctx, *original, draft)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(a.out, "event %d unchanged\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "event %d updated\n", *id)
	return nil
}

// applyEventFlags overlays the given flags on draft. A new date or start time
// keeps the event length unless an end time is given too.
func applyEventFlags(draft models.EventDraft, ef eventFlags) (models.EventDraft, error) {
	seen := ef.visited()
	length := draft.To.Sub(draft.From)

	day := draft.From.In(time.Local)
	if seen["date"] {
		parsed, err := time.ParseInLocation(dateutil.LocalDateLayout, *ef.date, time.Local)
		if err != nil {
			return draft, appErrors.Clone(appErrors.ErrValidation, "date must be MM-dd-yyyy")
		}
		day = parsed
	}
	clock := draft.From.In(time.Local).Format(clockLayout)
	if seen["start"] {
		clock = *ef.start
	}
	if seen["date"] || seen["start"] {
		from, err := atClock(day, clock)
		if err != nil {
			return draft, err
		}
		draft.From = from
		draft.To = from.Add(length)
	}
	if seen["end"] {
		var err error
		if draft.To, err = atClock(day, *ef.end); err != nil {
			return draft, err
		}
	}

	if seen["title"] {
		draft.Title = *ef.title
	}
	if seen["onsite"] {
		draft.Onsite = *ef.onsite
	}
	if seen["notes"] {
		draft.Notes = *ef.notes
	}
	if seen["user"] {
		draft.UserID = assigneeFlag(*ef.user)
	}
	return draft, nil
}

func (a *app) deleteEvent(ctx context.Context, args []string) error {
	fs := a.flags("event-delete")
	id := fs.Int("id", 0, "event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("-id is required")
	}
	if err := a.schedule.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "event %d deleted\n", *id)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flags("export")
	date := fs.String("date", "", "any day of the week, MM-dd-yyyy (default today)")
	rawFormat := fs.String("format", string(service.ExportFormatCSV), "csv or pdf")
	out := fs.String("out", "", "output file, relative to the export directory (default schedule_<monday>.<format>)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := service.ParseExportFormat(*rawFormat)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	anchor, err := a.parseDay(*date)
	if err != nil {
		return err
	}

	week, err := a.schedule.WeekEvents(ctx, anchor, false)
	if err != nil {
		return err
	}
	members, err := a.members.List(ctx)
	if err != nil {
		return err
	}
	content, err := a.exporter.RenderWeek(week, members, format)
	if err != nil {
		return err
	}

	name := *out
	if name == "" {
		name = service.Filename(week, format)
	}
	path, err := a.files.Save(name, content)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "wrote %d events to %s\n", len(week.Events), path)

	if a.cfg.Export.Retention > 0 {
		removed, err := a.files.Prune(a.cfg.Export.Retention)
		if err != nil {
			a.logger.Warn("prune exports", zap.Error(err))
		} else if len(removed) > 0 {
			a.logger.Info("pruned old exports", zap.Strings("files", removed))
		}
	}
	return nil
}

func (a *app) watchWeek(ctx context.Context, args []string) error {
	fs := a.flags("watch")
	schedule := fs.String("schedule", a.cfg.Watch.Schedule, "cron spec for refreshes")
	retries := fs.Int("retries", 3, "retries for a failed refresh")
	metricsAddr := fs.String("metrics-addr", "", "serve prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *metricsAddr != "" && a.metrics != nil {
		srv := &http.Server{Addr: *metricsAddr, Handler: a.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Warn("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	watcher := cron.NewWatcher(a.schedule, cron.WatcherConfig{
		Schedule:   *schedule,
		MaxRetries: *retries,
		RetryDelay: 5 * time.Second,
	}, func(week *service.WeekResult) {
		fmt.Fprintf(a.out, "\n[%s] week of %s\n", week.FetchedAt.Local().Format(clockLayout), dateutil.LocalDateString(dateutil.FirstDayOfWeek(week.Anchor)))
		if err := a.printEvents(week.Events); err != nil {
			a.logger.Warn("print week", zap.Error(err))
		}
	}, a.logger)

	if err := watcher.Start(ctx); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	<-ctx.Done()
	watcher.Stop()
	return nil
}

func (a *app) printEvents(events []models.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(a.out, "no events")
		return nil
	}
	dataset := service.WeekDataset(events, nil)
	byRow := service.SortEvents(events)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDAY\tSTART\tEND\tEVENT\tONSITE\tASSIGNEE\tNOTES")
	for i, row := range dataset.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			byRow[i].ID, row["Day"], row["Start"], row["End"], row["Event"], row["Onsite"], row["Assignee"], row["Notes"])
	}
	return tw.Flush()
}

func (a *app) parseDay(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return a.now(), nil
	}
	day, err := time.ParseInLocation(dateutil.LocalDateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be MM-dd-yyyy")
	}
	return day, nil
}

func atClock(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "time must be HH:MM")
	}
	local := day.In(time.Local)
	return time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.Local), nil
}

func assigneeFlag(id int) *int {
	if id < 0 {
		return nil
	}
	return &id
}

func describe(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
