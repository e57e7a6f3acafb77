package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/api/handlers"
	"github.com/wonny/acadport/backend/internal/audit"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/strategyconfig"
	"github.com/wonny/acadport/backend/pkg/httputil"
	"github.com/wonny/acadport/backend/pkg/logger"
)

// allocateCmd represents the allocate command
var allocateCmd = &cobra.Command{
	Use:   "allocate",
	Short: "교원-과목 배정",
	Long: `학과 단위로 교원-과목 배정을 실행/초기화/조회합니다.

Subcommands:
  run      - 미배정 과목 배정 (--dry-run 으로 미리보기)
  reset    - 활성 배정 비활성화
  stats    - 교원별 부하 통계
  history  - 배정 실행 이력

--server 를 지정하면 DB 대신 실행 중인 API 서버를 호출합니다.

Example:
  go run ./cmd/acad allocate run --department 1 --strategy round_robin
  go run ./cmd/acad allocate run --department 1 --dry-run --json
  go run ./cmd/acad allocate stats --department 1 --server http://localhost:8080`,
}

var (
	allocateRunCmd = &cobra.Command{
		Use:   "run",
		Short: "배정 실행",
		RunE:  runAllocate,
	}

	allocateResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "활성 배정 초기화",
		RunE:  runReset,
	}

	allocateStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "부하 통계 조회",
		RunE:  runStats,
	}

	allocateHistoryCmd = &cobra.Command{
		Use:   "history",
		Short: "배정 실행 이력 조회",
		RunE:  runHistory,
	}
)

var (
	allocDepartment int64
	allocPeriod     string
	allocSemesters  []int
	allocMaxLoad    int
	allocStrategy   string
	allocDryRun     bool
	allocServer     string
	allocTimeout    time.Duration
	allocLimit      int
)

func init() {
	rootCmd.AddCommand(allocateCmd)
	allocateCmd.AddCommand(allocateRunCmd)
	allocateCmd.AddCommand(allocateResetCmd)
	allocateCmd.AddCommand(allocateStatsCmd)
	allocateCmd.AddCommand(allocateHistoryCmd)

	// Flags shared by all subcommands
	allocateCmd.PersistentFlags().Int64Var(&allocDepartment, "department", 0, "department ID (required)")
	allocateCmd.PersistentFlags().StringVar(&allocPeriod, "period", "", "academic period (default: policy)")
	allocateCmd.PersistentFlags().IntSliceVar(&allocSemesters, "semesters", nil, "target semesters, e.g. 2,4,6 (default: policy)")
	allocateCmd.PersistentFlags().IntVar(&allocMaxLoad, "max-load", 0, "max subjects per teacher (default: policy)")
	allocateCmd.PersistentFlags().StringVar(&allocServer, "server", "", "API base URL; when set the request goes through the API")
	allocateCmd.PersistentFlags().DurationVar(&allocTimeout, "timeout", 2*time.Minute, "overall timeout")
	_ = allocateCmd.MarkPersistentFlagRequired("department")

	allocateRunCmd.Flags().StringVar(&allocStrategy, "strategy", "", "shuffle | round_robin (default: policy)")
	allocateRunCmd.Flags().BoolVar(&allocDryRun, "dry-run", false, "compute without saving")

	allocateHistoryCmd.Flags().IntVar(&allocLimit, "limit", 20, "number of runs to show (max 200)")
}

// buildRequest merges flags over the policy defaults
func buildRequest(pol *strategyconfig.Config) allocation.Request {
	req := pol.Request(contracts.DepartmentID(allocDepartment))
	if allocPeriod != "" {
		req.AcademicPeriod = allocPeriod
	}
	if len(allocSemesters) > 0 {
		req.TargetSemesters = allocSemesters
	}
	if allocMaxLoad > 0 {
		req.MaxLoadPerTeacher = allocMaxLoad
	}
	if allocStrategy != "" {
		req.Strategy = allocation.Strategy(allocStrategy)
	}
	return req
}

func apiClient(log *logger.Logger) *httputil.Client {
	return httputil.New(allocServer, log).WithTimeout(allocTimeout)
}

func runAllocate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), allocTimeout)
	defer cancel()

	var (
		req allocation.Request
		out *allocation.RunOutcome
	)

	if allocServer != "" {
		_, log, pol, err := loadBase()
		if err != nil {
			return err
		}
		req = buildRequest(pol)

		out = &allocation.RunOutcome{}
		err = apiClient(log).PostJSON(ctx, "/api/allocations", handlers.AllocateRequest{
			DepartmentID:    int64(req.DepartmentID),
			AcademicPeriod:  req.AcademicPeriod,
			TargetSemesters: req.TargetSemesters,
			MaxLoad:         req.MaxLoadPerTeacher,
			Strategy:        string(req.Strategy),
			DryRun:          allocDryRun,
		}, out)
		// 422 carries the outcome of a run that assigned nothing
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
			err = json.Unmarshal(se.Body, out)
		}
		if err != nil {
			return fmt.Errorf("allocate via %s: %w", allocServer, err)
		}
	} else {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		req = buildRequest(a.policy.Get())
		out, err = a.alloc.Run(ctx, req, allocDryRun)
		if err != nil {
			return fmt.Errorf("allocate: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(out)
	}
	printRunOutcome(req, out)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), allocTimeout)
	defer cancel()

	var out *allocation.ResetOutcome

	if allocServer != "" {
		_, log, pol, err := loadBase()
		if err != nil {
			return err
		}
		req := buildRequest(pol)

		out = &allocation.ResetOutcome{}
		err = apiClient(log).PostJSON(ctx, "/api/allocations/reset", handlers.ResetRequest{
			DepartmentID:    int64(req.DepartmentID),
			AcademicPeriod:  req.AcademicPeriod,
			TargetSemesters: req.TargetSemesters,
		}, out)
		if err != nil {
			return fmt.Errorf("reset via %s: %w", allocServer, err)
		}
	} else {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err = a.alloc.Reset(ctx, buildRequest(a.policy.Get()))
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(out)
	}
	PrintHeader(fmt.Sprintf("Reset - department %d", allocDepartment))
	PrintKeyValue("Run ID", out.RunID, 12)
	PrintKeyValue("Candidates", fmt.Sprint(len(out.Candidates)), 12)
	PrintKeyValue("Deactivated", fmt.Sprint(out.Deactivated), 12)
	PrintSuccess("Reset completed")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), allocTimeout)
	defer cancel()

	var st *allocation.AssignmentStats

	if allocServer != "" {
		_, log, pol, err := loadBase()
		if err != nil {
			return err
		}
		req := buildRequest(pol)

		q := url.Values{}
		q.Set("department_id", strconv.FormatInt(int64(req.DepartmentID), 10))
		q.Set("academic_period", req.AcademicPeriod)
		q.Set("max_load", strconv.Itoa(req.MaxLoadPerTeacher))
		if len(req.TargetSemesters) > 0 {
			sems := make([]string, len(req.TargetSemesters))
			for i, n := range req.TargetSemesters {
				sems[i] = strconv.Itoa(n)
			}
			q.Set("target_semesters", strings.Join(sems, ","))
		}

		st = &allocation.AssignmentStats{}
		if err := apiClient(log).GetJSON(ctx, "/api/allocations/stats", q, st); err != nil {
			return fmt.Errorf("stats via %s: %w", allocServer, err)
		}
	} else {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err = a.alloc.Stats(ctx, buildRequest(a.policy.Get()))
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(st)
	}
	printStats(st)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), allocTimeout)
	defer cancel()

	filter := audit.RunFilter{
		DepartmentID:   contracts.DepartmentID(allocDepartment),
		AcademicPeriod: allocPeriod,
		Limit:          allocLimit,
	}

	var runs []audit.RunRecord

	if allocServer != "" {
		_, log, _, err := loadBase()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("department_id", strconv.FormatInt(allocDepartment, 10))
		if allocPeriod != "" {
			q.Set("academic_period", allocPeriod)
		}
		q.Set("limit", strconv.Itoa(allocLimit))

		var body struct {
			Runs []audit.RunRecord `json:"runs"`
		}
		if err := apiClient(log).GetJSON(ctx, "/api/allocations/runs", q, &body); err != nil {
			return fmt.Errorf("history via %s: %w", allocServer, err)
		}
		runs = body.Runs
	} else {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err = a.runs.ListRuns(ctx, filter)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(runs)
	}
	printRuns(allocDepartment, runs)
	return nil
}
