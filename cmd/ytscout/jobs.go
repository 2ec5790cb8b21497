package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/ytscout/internal/scheduler"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage scheduled scrape jobs",
}

// jobFlags holds the job-creation flags shared by "jobs add".
type jobFlags struct {
	jobID    string
	channel  string
	video    string
	playlist string
	search   string

	comments    bool
	commentsSet bool

	scheduleType  string
	intervalUnit  string
	intervalValue int
	cronMinute    string
	cronHour      string
	cronDay       string
	cronMonth     string
	cronDOW       string
}

func registerJobFlags(cmd *cobra.Command, f *jobFlags) {
	cmd.Flags().StringVar(&f.jobID, "id", "", "job ID (derived from operation and target when empty)")
	cmd.Flags().StringVar(&f.channel, "channel", "", "channel ID to scrape")
	cmd.Flags().StringVar(&f.video, "video", "", "video ID to scrape")
	cmd.Flags().StringVar(&f.playlist, "playlist", "", "playlist ID to scrape")
	cmd.Flags().StringVar(&f.search, "search", "", "search query to scrape")
	cmd.Flags().BoolVar(&f.comments, "comments", false, "also scrape comments (defaults to on for --video)")
	cmd.Flags().StringVar(&f.scheduleType, "schedule", "interval", "schedule type: interval or cron")
	cmd.Flags().StringVar(&f.intervalUnit, "interval-unit", "days", "interval unit: seconds, minutes, hours, days, weeks")
	cmd.Flags().IntVar(&f.intervalValue, "interval-value", 1, "interval length")
	cmd.Flags().StringVar(&f.cronMinute, "cron-minute", "0", "cron minute field")
	cmd.Flags().StringVar(&f.cronHour, "cron-hour", "0", "cron hour field")
	cmd.Flags().StringVar(&f.cronDay, "cron-day", "*", "cron day-of-month field")
	cmd.Flags().StringVar(&f.cronMonth, "cron-month", "*", "cron month field")
	cmd.Flags().StringVar(&f.cronDOW, "cron-dow", "*", "cron day-of-week field")
}

// toParams translates flags into AddJobParams. commentsSet distinguishes an
// explicit --comments=false from the flag being absent.
func (f *jobFlags) toParams() (scheduler.AddJobParams, error) {
	type targetFlag struct {
		op    scheduler.Operation
		value string
	}
	var picked []targetFlag
	for _, t := range []targetFlag{
		{scheduler.OpChannel, f.channel},
		{scheduler.OpVideo, f.video},
		{scheduler.OpPlaylist, f.playlist},
		{scheduler.OpSearch, f.search},
	} {
		if t.value != "" {
			picked = append(picked, t)
		}
	}
	if len(picked) == 0 {
		return scheduler.AddJobParams{}, fmt.Errorf("one of --channel, --video, --playlist or --search is required")
	}
	if len(picked) > 1 {
		return scheduler.AddJobParams{}, fmt.Errorf("only one of --channel, --video, --playlist or --search may be set")
	}

	var sched scheduler.Schedule
	switch f.scheduleType {
	case "interval":
		sched = scheduler.Schedule{
			Type: scheduler.ScheduleTypeInterval,
			Interval: scheduler.IntervalSpec{
				Unit:  scheduler.IntervalUnit(f.intervalUnit),
				Value: f.intervalValue,
			},
		}
	case "cron":
		sched = scheduler.Schedule{
			Type: scheduler.ScheduleTypeCron,
			Cron: scheduler.CronSpec{
				Minute:    f.cronMinute,
				Hour:      f.cronHour,
				Day:       f.cronDay,
				Month:     f.cronMonth,
				DayOfWeek: f.cronDOW,
			},
		}
	default:
		return scheduler.AddJobParams{}, fmt.Errorf("invalid --schedule: %s (expected: interval, cron)", f.scheduleType)
	}

	params := scheduler.AddJobParams{
		ID:        f.jobID,
		Operation: picked[0].op,
		Target:    picked[0].value,
		Schedule:  sched,
	}
	if f.commentsSet {
		v := f.comments
		params.IncludeComments = &v
	}
	return params, nil
}

var addFlags jobFlags

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scheduled scrape job",
	Run:   runJobsAdd,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all jobs",
	Run:   runJobsList,
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <job-id>",
	Short: "Fire a job immediately, outside its schedule",
	Args:  cobra.ExactArgs(1),
	Run:   runJobsRun,
}

var jobsRemoveCmd = &cobra.Command{
	Use:   "remove <job-id>",
	Short: "Remove a job",
	Args:  cobra.ExactArgs(1),
	Run:   runJobsRemove,
}

var jobsPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Suspend a job's firings",
	Args:  cobra.ExactArgs(1),
	Run:   runJobsPause,
}

var jobsResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Reactivate a paused job",
	Args:  cobra.ExactArgs(1),
	Run:   runJobsResume,
}

func init() {
	registerJobFlags(jobsAddCmd, &addFlags)

	jobsCmd.AddCommand(jobsAddCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsRunCmd)
	jobsCmd.AddCommand(jobsRemoveCmd)
	jobsCmd.AddCommand(jobsPauseCmd)
	jobsCmd.AddCommand(jobsResumeCmd)
}

// controlScheduler builds a non-running scheduler over the shared store for
// the control commands.
func controlScheduler() *scheduler.Scheduler {
	cfg, log, store, err := setup()
	if err != nil {
		fatal(err)
	}
	sched, err := buildScheduler(cfg, store, log, nil)
	if err != nil {
		store.Close()
		fatal(err)
	}
	return sched
}

func runJobsAdd(cmd *cobra.Command, args []string) {
	addFlags.commentsSet = cmd.Flags().Changed("comments")

	params, err := addFlags.toParams()
	if err != nil {
		fatal(err)
	}

	sched := controlScheduler()
	id, err := sched.AddJob(context.Background(), params)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Job added: %s\n", id)
	fmt.Printf("  Operation: %s\n", params.Operation)
	fmt.Printf("  Target: %s\n", params.Target)
	fmt.Printf("  Schedule: %s\n", params.Schedule.Description())
}

func runJobsList(cmd *cobra.Command, args []string) {
	sched := controlScheduler()
	jobs, err := sched.ListJobs(context.Background())
	if err != nil {
		fatal(err)
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOPERATION\tTARGET\tCOMMENTS\tSCHEDULE\tSTATE\tNEXT FIRE")
	for _, job := range jobs {
		next := "-"
		if job.NextFireTime != nil {
			next = job.NextFireTime.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\t%s\n",
			job.ID, job.Operation, job.Target, job.IncludeComments,
			job.Schedule.Description(), job.State, next)
	}
	w.Flush()
}

func runJobsRun(cmd *cobra.Command, args []string) {
	sched := controlScheduler()
	if err := sched.RunNow(context.Background(), args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("Job fired: %s\n", args[0])
}

func runJobsRemove(cmd *cobra.Command, args []string) {
	sched := controlScheduler()
	existed, err := sched.RemoveJob(context.Background(), args[0])
	if err != nil {
		fatal(err)
	}
	if !existed {
		fatal(fmt.Errorf("job not found: %s", args[0]))
	}
	fmt.Printf("Job removed: %s\n", args[0])
}

func runJobsPause(cmd *cobra.Command, args []string) {
	sched := controlScheduler()
	if err := sched.PauseJob(context.Background(), args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("Job paused: %s\n", args[0])
}

func runJobsResume(cmd *cobra.Command, args []string) {
	sched := controlScheduler()
	if err := sched.ResumeJob(context.Background(), args[0]); err != nil {
		fatal(err)
	}
	fmt.Printf("Job resumed: %s\n", args[0])
}
