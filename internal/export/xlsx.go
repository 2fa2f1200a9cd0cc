package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ai-diet-planner/internal/diet"
	"ai-diet-planner/internal/render"
	"ai-diet-planner/internal/shared"
)

const (
	Filename    = "diet-plan.xlsx"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Sheet names, in workbook order.
const (
	SheetSummary  = "Summary"
	SheetMeals    = "Meals"
	SheetWeekly   = "Weekly"
	SheetTips     = "Tips"
	SheetShopping = "Shopping"
)

// Exporter turns a plan into a downloadable workbook.
type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

// Write encodes plan as an XLSX workbook to w. Any failure is classified as
// an export failure.
func (e *Exporter) Write(w io.Writer, plan *diet.Plan) error {
	f, err := Build(plan)
	if err != nil {
		return shared.NewError(shared.KindExportFailure, err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return shared.NewError(shared.KindExportFailure, fmt.Errorf("failed to write workbook: %w", err))
	}
	return nil
}

// Save writes the workbook to path.
func (e *Exporter) Save(path string, plan *diet.Plan) error {
	f, err := Build(plan)
	if err != nil {
		return shared.NewError(shared.KindExportFailure, err)
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return shared.NewError(shared.KindExportFailure, fmt.Errorf("failed to save workbook: %w", err))
	}
	return nil
}

// Build lays out the workbook. Tips and Shopping sheets are only added when
// the plan has entries for them.
func Build(plan *diet.Plan) (*excelize.File, error) {
	if plan == nil {
		return nil, fmt.Errorf("no plan to export")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, *diet.Plan) error{
		writeSummary,
		writeMeals,
		writeWeekly,
	}
	if len(plan.Tips) > 0 {
		steps = append(steps, listSheet(SheetTips, "Tip", plan.Tips))
	}
	if len(plan.ShoppingList) > 0 {
		steps = append(steps, listSheet(SheetShopping, "Item", plan.ShoppingList))
	}

	for _, step := range steps {
		if err := step(f, plan); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSummary(f *excelize.File, plan *diet.Plan) error {
	split := render.NewMacroSplit(plan.DailyTotals)

	rows := [][]any{
		{"Plan", plan.DisplayName()},
		{"Overview", string(plan.Overview)},
		{},
		{"Daily totals", "Value"},
		{"Calories (kcal)", plan.DailyTotals.Calories.Float()},
		{"Protein (g)", plan.DailyTotals.Protein.Float()},
		{"Carbs (g)", plan.DailyTotals.Carbs.Float()},
		{"Fat (g)", plan.DailyTotals.Fat.Float()},
		{},
		{"Macro split", "kcal", "%"},
	}
	for i, label := range split.Labels {
		rows = append(rows, []any{label, split.Series[i], split.Percents[i]})
	}

	if err := setRows(f, SheetSummary, rows); err != nil {
		return err
	}
	return f.SetColWidth(SheetSummary, "A", "A", 18)
}

func writeMeals(f *excelize.File, plan *diet.Plan) error {
	if _, err := f.NewSheet(SheetMeals); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(SheetMeals)
	if err != nil {
		return err
	}

	header := []any{"Meal", "Time", "Item", "Portion", "Calories", "Protein", "Carbs", "Fat"}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := 2
	next := func(values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return sw.SetRow(cell, values)
	}

	for _, m := range plan.Meals {
		for _, food := range m.Foods {
			if err := next([]any{
				string(m.Name), string(m.Time), string(food.Item), string(food.Portion),
				food.Calories.Float(), food.Protein.Float(), food.Carbs.Float(), food.Fat.Float(),
			}); err != nil {
				return err
			}
		}
		t := m.MealTotals
		if err := next([]any{
			string(m.Name), string(m.Time), "Meal Total", "",
			t.Calories.Float(), t.Protein.Float(), t.Carbs.Float(), t.Fat.Float(),
		}); err != nil {
			return err
		}
	}

	return sw.Flush()
}

func writeWeekly(f *excelize.File, plan *diet.Plan) error {
	if _, err := f.NewSheet(SheetWeekly); err != nil {
		return err
	}

	grid := render.WeeklyGrid(plan)
	rows := [][]any{{"Day", "Calories", "Protein", "Carbs", "Fat", "Meals"}}
	for _, day := range grid.Days {
		names := make([]string, 0, len(day.Meals))
		for _, m := range day.Meals {
			names = append(names, m.Name)
		}
		rows = append(rows, []any{
			day.Day,
			plan.DailyTotals.Calories.Float(),
			plan.DailyTotals.Protein.Float(),
			plan.DailyTotals.Carbs.Float(),
			plan.DailyTotals.Fat.Float(),
			strings.Join(names, ", "),
		})
	}
	return setRows(f, SheetWeekly, rows)
}

func listSheet(sheet, header string, items []diet.Text) func(*excelize.File, *diet.Plan) error {
	return func(f *excelize.File, _ *diet.Plan) error {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		rows := [][]any{{header}}
		for _, item := range items {
			rows = append(rows, []any{string(item)})
		}
		return setRows(f, sheet, rows)
	}
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, values := range rows {
		if len(values) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
