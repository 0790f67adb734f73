package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Sheet1"

func writeSheet(f *excelize.File, headings []string, rows [][]interface{}) error {
	if _, err := f.NewSheet(exportSheetName); err != nil {
		return err
	}
	col := 'A'
	for _, h := range headings {
		if err := f.SetCellValue(exportSheetName, string(col)+"1", h); err != nil {
			return err
		}
		col++
	}
	for i, row := range rows {
		col := 'A'
		for _, value := range row {
			cell := string(col) + fmt.Sprint(i+2)
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				return err
			}
			col++
		}
	}
	return nil
}

func BuildTrialBalanceWorkbook(report *TrialBalanceReport) (*excelize.File, error) {
	f := excelize.NewFile()
	rows := make([][]interface{}, 0, len(report.Rows)+1)
	for _, r := range report.Rows {
		rows = append(rows, []interface{}{r.AccountCode, r.AccountName, r.Debit.String(), r.Credit.String()})
	}
	rows = append(rows, []interface{}{"", "Total", report.TotalDebit.String(), report.TotalCredit.String()})
	err := writeSheet(f, []string{"AccountCode", "AccountName", "Debit", "Credit"}, rows)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func BuildBalanceSheetWorkbook(report *BalanceSheetReport) (*excelize.File, error) {
	f := excelize.NewFile()
	rows := make([][]interface{}, 0)
	for _, section := range []*BalanceSheetSection{report.Assets, report.Liabilities, report.Equity} {
		for _, r := range section.Rows {
			rows = append(rows, []interface{}{section.Title, r.AccountCode, r.AccountName, r.Amount.String()})
		}
		rows = append(rows, []interface{}{section.Title, "", "Total " + section.Title, section.Total.String()})
	}
	rows = append(rows, []interface{}{"Equity", "", "Unrealized Net Income", report.UnrealizedNetIncome.String()})
	rows = append(rows, []interface{}{"", "", "Total Assets", report.TotalAssets.String()})
	rows = append(rows, []interface{}{"", "", "Total Liabilities and Equity", report.TotalLiabilitiesAndEquity.String()})
	err := writeSheet(f, []string{"Section", "AccountCode", "AccountName", "Amount"}, rows)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func BuildIncomeStatementWorkbook(report *IncomeStatementReport) (*excelize.File, error) {
	f := excelize.NewFile()
	rows := make([][]interface{}, 0)
	for _, section := range []*IncomeStatementSection{report.Revenue, report.CostOfGoods, report.Expenses} {
		for _, r := range section.Rows {
			rows = append(rows, []interface{}{section.Title, r.AccountCode, r.AccountName, r.Amount.String()})
		}
		rows = append(rows, []interface{}{section.Title, "", "Total " + section.Title, section.Total.String()})
	}
	rows = append(rows, []interface{}{"", "", "Gross Profit", report.GrossProfit.String()})
	rows = append(rows, []interface{}{"", "", "Net Income", report.NetIncome.String()})
	err := writeSheet(f, []string{"Section", "AccountCode", "AccountName", "Amount"}, rows)
	if err != nil {
		return nil, err
	}
	return f, nil
}
