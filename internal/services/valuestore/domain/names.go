package domain

import "strings"

// FileExtension is the workbook extension every value store file carries.
const FileExtension = ".xlsx"

// NormalizeFileName turns a logical value store name into the file name
// requested from the file service and used as the cache key. The extension
// check ignores case so "Rates.XLSX" is not requested as "Rates.XLSX.xlsx".
func NormalizeFileName(logicalName string) string {
	name := strings.TrimSpace(logicalName)
	if name == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), FileExtension) {
		return name
	}
	return name + FileExtension
}
