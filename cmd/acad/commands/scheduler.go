package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/acadport/backend/internal/scheduler"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 배정과 위험도 재계산 작업을 스케줄합니다.

Subcommands:
  start   - 스케줄러 시작 (정책 파일 변경 시 스케줄 재등록)
  list    - 등록될 작업과 스케줄
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/acad scheduler start --policy config/policy.yaml
  go run ./cmd/acad scheduler list
  go run ./cmd/acad scheduler run allocation`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- allocation:   schedule.allocation (정책의 모든 학과 배정)
- risk_refresh: schedule.risk_refresh (현재 학기 위험도 재계산)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록될 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== acadport Scheduler ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, registered, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	a.watchPolicy(ctx, func() { reschedule(sched, registered, a.log) })

	sched.Start()

	PrintSuccess("Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	printJobStats(sched.GetJobStats())
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

// listJobs shows what start would register; no connections needed
func listJobs(cmd *cobra.Command, args []string) error {
	_, _, pol, err := loadBase()
	if err != nil {
		return err
	}

	jobs := []struct{ name, spec, scope string }{
		{"allocation", pol.Schedule.Allocation, fmt.Sprintf("departments %v", pol.Allocation.Departments)},
		{"risk_refresh", pol.Schedule.RiskRefresh, "period " + pol.Allocation.AcademicPeriod},
	}

	if jsonOutput {
		out := make(map[string]string, len(jobs))
		for _, j := range jobs {
			out[j.name] = j.spec
		}
		return printJSON(out)
	}

	widths := []int{14, 18, 30}
	PrintTableHeader([]string{"Job", "Schedule", "Scope"}, widths)
	for _, j := range jobs {
		spec := j.spec
		if spec == "" {
			spec = "(manual)"
		}
		PrintTableRow([]string{j.name, spec, j.scope}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, _, err := a.newScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)

	res, err := sched.RunJobSync(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if jsonOutput {
		return printJSON(res)
	}

	PrintKeyValue("Duration", res.Duration.String(), 9)
	PrintKeyValue("Attempts", fmt.Sprint(res.Attempts), 9)
	if !res.Success {
		PrintError(res.Error)
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("Job %s completed", jobName))
	return nil
}

func printJobStats(stats map[string]scheduler.JobStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := stats[name]
		spec := st.Schedule
		if spec == "" {
			spec = "(manual)"
		}
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("  - %-14s %-18s next: %s\n", name, spec, next)
		if st.ConsecutiveFailures > 0 {
			fmt.Printf("    ⚠️  %d consecutive failure(s)\n", st.ConsecutiveFailures)
		}
	}
}
