package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/acadport/backend/internal/contracts"
)

// riskCmd represents the risk command
var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "저장된 성적의 위험도 관리",
	Long: `저장된 성적 레코드의 위험도를 재계산하거나 과목별 분포를 조회합니다.

Subcommands:
  refresh  - 현재 정책으로 등급/위험도 재계산
  summary  - 과목별 위험도 분포와 출석 추세
  student  - 학생별 과목 성적과 종합 위험도

Example:
  go run ./cmd/acad risk refresh
  go run ./cmd/acad risk summary --subject 12
  go run ./cmd/acad risk student --student 1042`,
}

var (
	riskRefreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "위험도 재계산",
		RunE:  runRiskRefresh,
	}

	riskSummaryCmd = &cobra.Command{
		Use:   "summary",
		Short: "과목별 위험도 분포",
		RunE:  runRiskSummary,
	}

	riskStudentCmd = &cobra.Command{
		Use:   "student",
		Short: "학생별 종합 위험도",
		RunE:  runRiskStudent,
	}
)

var (
	riskPeriod  string
	riskSubject int64
	riskStudent int64
)

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.AddCommand(riskRefreshCmd)
	riskCmd.AddCommand(riskSummaryCmd)

	riskCmd.PersistentFlags().StringVar(&riskPeriod, "period", "", "academic period (default: policy)")
	riskSummaryCmd.Flags().Int64Var(&riskSubject, "subject", 0, "subject ID (required)")
	_ = riskSummaryCmd.MarkFlagRequired("subject")

	riskCmd.AddCommand(riskStudentCmd)
	riskStudentCmd.Flags().Int64Var(&riskStudent, "student", 0, "student ID (required)")
	_ = riskStudentCmd.MarkFlagRequired("student")
}

func runRiskRefresh(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	period := riskPeriod
	if period == "" {
		period = a.policy.Get().Allocation.AcademicPeriod
	}

	sum, err := a.perf.RefreshRisk(ctx, period)
	if err != nil {
		return fmt.Errorf("refresh risk: %w", err)
	}

	if jsonOutput {
		return printJSON(sum)
	}

	PrintHeader(fmt.Sprintf("Risk refresh - %s", period))
	PrintKeyValue("Scanned", fmt.Sprint(sum.Scanned), 10)
	PrintKeyValue("Updated", fmt.Sprint(sum.Updated), 10)
	PrintKeyValue("Invalid", fmt.Sprint(sum.Invalid), 10)
	PrintSeparator()
	printBatch(sum.Batch.Critical, sum.Batch.HighRisk, sum.Batch.Average, sum.Batch.Safe, sum.Batch.Best)
	if sum.Invalid > 0 {
		PrintWarning(fmt.Sprintf("%d record(s) hold out-of-range values and were skipped", sum.Invalid))
	}
	return nil
}

func runRiskSummary(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	period := riskPeriod
	if period == "" {
		period = a.policy.Get().Allocation.AcademicPeriod
	}

	sum, err := a.perf.Summary(ctx, contracts.SubjectID(riskSubject), period)
	if err != nil {
		return fmt.Errorf("subject summary: %w", err)
	}

	if jsonOutput {
		return printJSON(sum)
	}

	PrintHeader(fmt.Sprintf("Subject %d - %s", sum.SubjectID, sum.AcademicPeriod))
	PrintKeyValue("Students", fmt.Sprint(sum.Batch.Total), 14)
	PrintKeyValue("Avg final", fmt.Sprintf("%.1f", sum.Batch.AvgFinal), 14)
	PrintKeyValue("Avg attendance", fmt.Sprintf("%.0f%%", sum.Batch.AvgAttendance), 14)
	PrintSeparator()
	printBatch(sum.Batch.Critical, sum.Batch.HighRisk, sum.Batch.Average, sum.Batch.Safe, sum.Batch.Best)
	PrintSeparator()
	PrintKeyValue("Below 75%", fmt.Sprintf("%.1f%%", sum.Attendance.RiskPercent), 14)
	return nil
}

func runRiskStudent(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	period := riskPeriod
	if period == "" {
		period = a.policy.Get().Allocation.AcademicPeriod
	}

	ov, err := a.perf.StudentOverview(ctx, contracts.StudentID(riskStudent), period)
	if err != nil {
		return fmt.Errorf("student overview: %w", err)
	}

	if jsonOutput {
		return printJSON(ov)
	}

	PrintHeader(fmt.Sprintf("Student %d - %s", ov.StudentID, ov.AcademicPeriod))
	PrintKeyValue("Overall", string(ov.Overall), 14)
	PrintKeyValue("Avg final", fmt.Sprintf("%.1f", ov.AvgFinal), 14)
	PrintKeyValue("Avg attendance", fmt.Sprintf("%.1f%%", ov.AvgAttendance), 14)
	PrintSeparator()

	widths := []int{8, 6, 7, 6, 9, 6}
	PrintTableHeader([]string{"Subject", "Final", "Attend", "Grade", "Risk", "P(fail)"}, widths)
	for _, sub := range ov.Subjects {
		prob := "-"
		if sub.Probability != nil {
			prob = fmt.Sprintf("%.2f", *sub.Probability)
		}
		PrintTableRow([]string{
			fmt.Sprint(sub.SubjectID),
			fmt.Sprintf("%.1f", sub.FinalScore),
			fmt.Sprintf("%.0f%%", sub.Attendance),
			string(sub.Grade),
			string(sub.Risk),
			prob,
		}, widths)
	}
	PrintSeparator()
	for _, sub := range ov.Subjects {
		fmt.Printf("  %d: %s\n", sub.SubjectID, sub.Suggestion)
	}
	return nil
}

func printBatch(critical, high, average, safe, best int) {
	widths := []int{10, 10, 8, 6, 6}
	PrintTableHeader([]string{"Critical", "High Risk", "Average", "Safe", "Best"}, widths)
	PrintTableRow([]string{fmt.Sprint(critical), fmt.Sprint(high), fmt.Sprint(average), fmt.Sprint(safe), fmt.Sprint(best)}, widths)
}
