package reports

import (
	"fmt"
	"strings"
)

var unsafeName = strings.NewReplacer("/", "_", `\`, "_", " ", "_")

// SafeName makes an application name usable inside a file name.
func SafeName(name string) string {
	name = unsafeName.Replace(strings.TrimSpace(name))
	if name == "" {
		return "Report"
	}
	return name
}

// DocumentFileName → GW_<name>_Penetration_Test_Report.docx
func DocumentFileName(appName string) string {
	return "GW_" + SafeName(appName) + "_Penetration_Test_Report.docx"
}

// SpreadsheetFileName → GW_<name>_Excel_Findings_<count>.xlsx
func SpreadsheetFileName(appName string, count int) string {
	return fmt.Sprintf("GW_%s_Excel_Findings_%d.xlsx", SafeName(appName), count)
}
