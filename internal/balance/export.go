package balance

import (
	"encoding/csv"
	"io"
	"strconv"
)

var exportHeader = []string{
	"Warehouse", "SKU", "Item", "Category", "Quantity",
	"Unit Cost", "Stock Value", "Sale Value",
}

// ExportRows streams report rows as CSV.
func ExportRows(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.WarehouseName,
			row.SKU,
			row.ItemName,
			row.Category,
			strconv.FormatInt(row.Quantity, 10),
			row.UnitCost.StringFixed(2),
			row.StockValue.StringFixed(2),
			row.SaleValue.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
