package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/acadport/backend/internal/risk"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "성적/출석으로 등급과 위험도 분류",
	Long: `출석률(0-100)과 최종 점수(0-20)로 등급과 위험도를 계산합니다.
DB 연결이 필요 없습니다.

Example:
  go run ./cmd/acad classify --attendance 82 --final 13.5
  go run ./cmd/acad classify --attendance 82 --final 9 --variant five_bucket`,
	RunE: runClassify,
}

// penaltyCmd represents the penalty command
var penaltyCmd = &cobra.Command{
	Use:   "penalty",
	Short: "출석률 패널티 조회",
	Long: `출석률에 따른 패널티 등급과 금액을 계산합니다.

Example:
  go run ./cmd/acad penalty --attendance 72
  go run ./cmd/acad penalty --attendance 85 --table strict`,
	RunE: runPenalty,
}

// finalScoreCmd represents the final-score command
var finalScoreCmd = &cobra.Command{
	Use:   "final-score",
	Short: "원점수를 20점 만점으로 환산",
	Long: `원점수 합계를 0-20 최종 점수로 환산합니다.
--max 를 생략하면 정책의 배점 합계를 사용합니다.

Example:
  go run ./cmd/acad final-score --total 120
  go run ./cmd/acad final-score --total 30 --max 50`,
	RunE: runFinalScore,
}

var (
	clsAttendance float64
	clsFinal      float64
	clsVariant    string
	clsTable      string
	clsTotal      float64
	clsMax        float64
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(penaltyCmd)
	rootCmd.AddCommand(finalScoreCmd)

	classifyCmd.Flags().Float64Var(&clsAttendance, "attendance", 0, "attendance percent 0-100 (required)")
	classifyCmd.Flags().Float64Var(&clsFinal, "final", 0, "final score 0-20 (required)")
	classifyCmd.Flags().StringVar(&clsVariant, "variant", "", "four_bucket | five_bucket (default: policy)")
	_ = classifyCmd.MarkFlagRequired("attendance")
	_ = classifyCmd.MarkFlagRequired("final")

	penaltyCmd.Flags().Float64Var(&clsAttendance, "attendance", 0, "attendance percent 0-100 (required)")
	penaltyCmd.Flags().StringVar(&clsTable, "table", "", "standard | strict (default: policy)")
	_ = penaltyCmd.MarkFlagRequired("attendance")

	finalScoreCmd.Flags().Float64Var(&clsTotal, "total", 0, "raw total (required)")
	finalScoreCmd.Flags().Float64Var(&clsMax, "max", 0, "max possible raw total (default: policy mark scheme)")
	_ = finalScoreCmd.MarkFlagRequired("total")
}

func runClassify(cmd *cobra.Command, args []string) error {
	_, _, pol, err := loadBase()
	if err != nil {
		return err
	}

	variant := risk.RiskVariant(pol.Classification.RiskVariant)
	if clsVariant != "" {
		if variant, err = risk.ParseRiskVariant(clsVariant); err != nil {
			return err
		}
	}

	cls, err := risk.Classify(clsAttendance, clsFinal, variant)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"grade":      cls.Grade,
			"risk":       cls.Risk,
			"variant":    variant,
			"suggestion": risk.ImprovementSuggestion(clsFinal),
		})
	}

	PrintHeader("Classification")
	PrintKeyValue("Attendance", fmt.Sprintf("%.2f%%", clsAttendance), 12)
	PrintKeyValue("Final score", fmt.Sprintf("%.2f / 20", clsFinal), 12)
	PrintKeyValue("Variant", string(variant), 12)
	PrintSeparator()
	PrintKeyValue("Grade", string(cls.Grade), 12)
	PrintKeyValue("Risk", string(cls.Risk), 12)
	PrintKeyValue("Suggestion", risk.ImprovementSuggestion(clsFinal), 12)
	return nil
}

func runPenalty(cmd *cobra.Command, args []string) error {
	_, _, pol, err := loadBase()
	if err != nil {
		return err
	}

	table := risk.PenaltyTable(pol.Classification.PenaltyTable)
	if clsTable != "" {
		if table, err = risk.ParsePenaltyTable(clsTable); err != nil {
			return err
		}
	}

	res, err := risk.Penalty(clsAttendance, table)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"tier":   res.Tier,
			"amount": res.Amount,
			"table":  table,
		})
	}

	PrintHeader("Attendance penalty")
	PrintKeyValue("Attendance", fmt.Sprintf("%.2f%%", clsAttendance), 10)
	PrintKeyValue("Table", string(table), 10)
	PrintSeparator()
	PrintKeyValue("Tier", string(res.Tier), 10)
	PrintKeyValue("Amount", fmt.Sprint(res.Amount), 10)
	return nil
}

func runFinalScore(cmd *cobra.Command, args []string) error {
	_, _, pol, err := loadBase()
	if err != nil {
		return err
	}

	max := clsMax
	if max == 0 {
		p, err := pol.Policy()
		if err != nil {
			return err
		}
		max = p.Scheme.MaxTotal()
	}

	final, err := risk.FinalScore(clsTotal, max)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]interface{}{
			"final_score":      final,
			"max_possible_raw": max,
			"grade":            risk.Grade(final),
		})
	}

	PrintHeader("Final score")
	PrintKeyValue("Raw total", fmt.Sprintf("%.2f / %.2f", clsTotal, max), 11)
	PrintKeyValue("Final", fmt.Sprintf("%.2f / 20", final), 11)
	PrintKeyValue("Grade", string(risk.Grade(final)), 11)
	return nil
}
