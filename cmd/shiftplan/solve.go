package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paiban/shiftplan/pkg/logger"
	"github.com/paiban/shiftplan/pkg/model"
	"github.com/paiban/shiftplan/pkg/scheduler/constraint"
	"github.com/paiban/shiftplan/pkg/scheduler/solver"
)

func solveCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "为排班计划求解员工分配",
		Long: `构建规划快照并运行局部搜索，输出最优方案。
中断（Ctrl-C）会取消求解并输出目前找到的最优方案。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer app.close()

			scheduleID, ownerID, err := idFlags(cmd)
			if err != nil {
				return err
			}
			apply, _ := cmd.Flags().GetBool("apply")
			resume, _ := cmd.Flags().GetBool("resume")
			asJSON, _ := cmd.Flags().GetBool("json")

			store, err := app.openStore(cmd)
			if err != nil {
				return err
			}
			svc := app.newService(cmd.Context(), store, resume)
			requester := model.Requester{UserID: ownerID, Role: model.RoleManager}

			jobID, err := svc.Submit(cmd.Context(), scheduleID, requester)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-sigCtx.Done()
				// 正常结束时 stop() 也会触发，任务已终止则忽略
				_ = svc.Jobs().Cancel(jobID)
			}()

			timeout := app.cfg.Solver.AwaitTimeout
			if budget := app.cfg.Solver.TimeBudget + 5*time.Second; app.cfg.Solver.TimeBudget > 0 && budget > timeout {
				timeout = budget
			}
			result, err := svc.Jobs().Await(cmd.Context(), jobID, timeout)
			if err != nil {
				return err
			}
			if result.Cancelled {
				ctx := logger.ContextWithRequestID(cmd.Context(), jobID.String())
				ctx = logger.ContextWithScheduleID(ctx, scheduleID.String())
				logger.WithContext(ctx).Warn().Msg("求解已取消，输出当前最优方案")
			}

			var applyErr error
			if apply {
				result, applyErr = svc.Apply(cmd.Context(), requester, result)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				printResult(out, result, apply && applyErr == nil)
			}
			return applyErr
		},
	}

	cmd.Flags().String("schedule", "", "排班计划ID")
	cmd.Flags().String("owner", "", "排班计划所属经理ID")
	cmd.Flags().Bool("apply", false, "求解结果可行时写回存储")
	cmd.Flags().Bool("resume", false, "以已有分配作为初始解")
	cmd.Flags().Bool("json", false, "以 JSON 输出结果")
	cmd.MarkFlagRequired("schedule")
	cmd.MarkFlagRequired("owner")

	return cmd
}

// idFlags 解析 --schedule 和 --owner
func idFlags(cmd *cobra.Command) (uuid.UUID, uuid.UUID, error) {
	rawSchedule, _ := cmd.Flags().GetString("schedule")
	rawOwner, _ := cmd.Flags().GetString("owner")

	scheduleID, err := uuid.Parse(rawSchedule)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("无效的排班计划ID %q: %w", rawSchedule, err)
	}
	ownerID, err := uuid.Parse(rawOwner)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("无效的经理ID %q: %w", rawOwner, err)
	}
	return scheduleID, ownerID, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, r *solver.SolveResult, saved bool) {
	feasible := "可行"
	if !r.Feasible {
		feasible = "不可行"
	}

	fmt.Fprintf(w, "排班计划: %s\n", r.ScheduleID)
	fmt.Fprintf(w, "任务:     %s\n", r.JobID)
	fmt.Fprintf(w, "得分:     %s (%s)\n", r.Score, feasible)
	if s := r.Statistics; s != nil {
		fmt.Fprintf(w, "填充:     %d/%d (%.1f%%)\n", s.FilledSlots, s.TotalSlots, s.FillRate*100)
		fmt.Fprintf(w, "迭代:     %d 次，接受 %d，改进 %d，终止原因 %s\n", s.Iterations, s.AcceptedMoves, s.Improvements, s.Reason)
	}
	fmt.Fprintf(w, "耗时:     %s\n", r.Duration.Round(time.Millisecond))
	if r.Cancelled {
		fmt.Fprintln(w, "状态:     已取消")
	}
	if saved {
		fmt.Fprintln(w, "状态:     已写入")
	}
	fmt.Fprintln(w)

	if len(r.Assignments) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "员工\t班次\t开始\t结束")
		for _, a := range r.Assignments {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				a.EmployeeID, a.ShiftID, a.Start.Format(time.RFC3339), a.End.Format(time.RFC3339))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if rep := r.Report; rep != nil {
		c, f := rep.Coverage, rep.Fairness
		fmt.Fprintf(w, "覆盖:     %d/%d 个班次满员，槽位覆盖率 %.1f%%\n", c.CoveredShifts, c.TotalShifts, c.OverallCoverage)
		for _, u := range c.Understaffed {
			fmt.Fprintf(w, "  - 班次 %s %s 缺 %d 人\n", u.ShiftID, u.Start.Format(time.RFC3339), u.Shortage)
		}
		fmt.Fprintf(w, "公平性:   %.1f 分，工时基尼系数 %.3f，人均 %.1f 小时\n\n", f.OverallScore, f.WorkloadGini, f.AvgHoursPerEmployee)
	}

	if cr := r.ConstraintResult; cr != nil {
		printViolations(w, "硬约束违反", cr.HardViolations)
		printViolations(w, "软约束违反", cr.SoftViolations)
	}
}

func printViolations(w io.Writer, title string, violations []constraint.ViolationDetail) {
	if len(violations) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(violations))
	for _, v := range violations {
		fmt.Fprintf(w, "  - [%s] %s (罚分 %d)\n", v.ConstraintName, v.Message, v.Penalty)
	}
}
