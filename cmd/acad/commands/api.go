package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/acadport/backend/internal/allocation"
	"github.com/wonny/acadport/backend/internal/api"
	"github.com/wonny/acadport/backend/internal/api/handlers"
	"github.com/wonny/acadport/backend/internal/api/ws"
	"github.com/wonny/acadport/backend/internal/audit"
	"github.com/wonny/acadport/backend/internal/contracts"
	"github.com/wonny/acadport/backend/internal/performance"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 배정/분류/성적 엔드포인트 제공
- /ws/events 로 배정 이벤트 브로드캐스트
- 정책 파일 변경 시 자동 반영

Endpoints:
  GET  /health                                 - Health check
  GET  /ready                                  - DB/Redis readiness
  GET  /ws/events                              - 배정 이벤트 (websocket)
  POST /api/allocations                        - 배정 실행
  POST /api/allocations/reset                  - 배정 초기화
  GET  /api/allocations/stats                  - 부하 통계
  GET  /api/allocations/runs                   - 배정 실행 이력
  POST /api/classify                           - 등급/위험도 분류
  POST /api/penalty                            - 출석 패널티
  POST /api/final-score                        - 최종 점수 환산
  POST /api/performance/marks                  - 성적 입력
  POST /api/performance/attendance             - 월별 출석 입력
  POST /api/performance/refresh                - 위험도 재계산
  GET  /api/performance/subjects/{id}/summary  - 과목별 위험도 분포

Example:
  go run ./cmd/acad api
  go run ./cmd/acad api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run scheduled jobs in the same process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== acadport API Server ===")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1-7. Config, logger, policy, database, redis, services, run log
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 8. Event hub alongside the run log
	hub := ws.NewHub(a.log)
	a.alloc.SetPublisher(allocation.Publishers{a.recorder, hub})
	go hub.Run(ctx)

	// 9. Handlers (policy read through the holder so reloads apply)
	defaults := func(dept contracts.DepartmentID) allocation.Request {
		return a.policy.Get().Request(dept)
	}
	period := func() string {
		return a.policy.Get().Allocation.AcademicPeriod
	}

	router := api.NewRouter(api.Handlers{
		Allocation:  handlers.NewAllocationHandler(a.alloc, defaults, a.log.WithComponent("api")),
		Classify:    handlers.NewClassifyHandler(a.perf.Policy),
		Performance: handlers.NewPerformanceHandler(a.perf, period, a.log.WithComponent("api")),
		Runs:        handlers.NewAuditHandler(a.runs, a.log.WithComponent("api")),
		Events:      hub,
		Ready:       map[string]func(context.Context) error{
			"database": a.db.Ping,
			"redis":    a.redis.Ping,
		},
	}, api.RateLimit{
		PerSecond: a.cfg.RateLimitPerSecond,
		Burst:     a.cfg.RateLimitBurst,
	}, a.log)

	// 10. Optional in-process scheduler
	var onReload func()
	if apiWithScheduler {
		sched, registered, err := a.newScheduler()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		onReload = func() { reschedule(sched, registered, a.log) }
	}
	a.watchPolicy(ctx, onReload)

	// 11. Serve until SIGINT/SIGTERM, then drain
	server := api.New(a.cfg, a.log, router)
	return server.Run(ctx, func(addr string) {
		fmt.Printf("\n✅ Server listening on %s\n", addr)
		fmt.Println("\nPress Ctrl+C to stop")
	})
}

// compile-time checks that the services satisfy the handler interfaces
var (
	_ handlers.AllocationService  = (*allocation.Service)(nil)
	_ handlers.PerformanceService = (*performance.Service)(nil)
	_ handlers.RunLister          = (*audit.Repository)(nil)
	_ allocation.Publisher        = (*audit.Recorder)(nil)
)
