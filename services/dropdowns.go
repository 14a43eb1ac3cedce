package services

// UnitOptions lists the units offered in the estimate template's 単位 column.
var UnitOptions = []string{
	"式",
	"m",
	"m2",
	"m3",
	"t",
	"kg",
	"本",
	"枚",
	"個",
	"台",
	"箇所",
	"人",
	"人工",
	"日",
	"月",
	"時間",
	"回",
	"L",
}
