package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category is one of the five fixed construction cost classifications.
type Category string

const (
	CategoryLabor       Category = "labor"
	CategorySubcontract Category = "subcontract"
	CategoryMaterial    Category = "material"
	CategoryMachine     Category = "machine"
	CategoryExpense     Category = "expense"
)

var categoryOrder = []Category{
	CategoryLabor,
	CategorySubcontract,
	CategoryMaterial,
	CategoryMachine,
	CategoryExpense,
}

var categoryLabels = map[Category]string{
	CategoryLabor:       "労務費",
	CategorySubcontract: "外注費",
	CategoryMaterial:    "材料費",
	CategoryMachine:     "機械費",
	CategoryExpense:     "経費",
}

// Categories returns all categories in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Label returns the Japanese ledger label for the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory accepts either the English value or the Japanese label.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	c := Category(strings.ToLower(s))
	if c.Valid() {
		return c, nil
	}
	for cat, label := range categoryLabels {
		if s == label {
			return cat, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// CategoryRule maps keywords to a category. Rules are evaluated in order.
type CategoryRule struct {
	Category Category `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultCategoryRules is the built-in keyword dictionary. Subcontract comes
// first so that "外注労務" style rows land in subcontract, and machine is
// checked before material so rental of equipment is not mistaken for goods.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: CategorySubcontract, Keywords: []string{
			"外注", "下請", "協力会社", "委託", "請負", "専門工事", "電気工事", "設備工事",
			"subcontract", "outsourc",
		}},
		{Category: CategoryLabor, Keywords: []string{
			"労務", "人工", "作業員", "職人", "手間", "工賃", "人件費", "派遣", "世話役", "交通誘導",
			"labor", "labour", "worker",
		}},
		{Category: CategoryMachine, Keywords: []string{
			"機械", "重機", "リース", "レンタル", "損料", "バックホウ", "クレーン", "ユンボ",
			"ダンプ", "発電機", "機材", "回送", "燃料", "machine", "equipment", "rental",
		}},
		{Category: CategoryMaterial, Keywords: []string{
			"材料", "資材", "鋼材", "木材", "生コン", "コンクリート", "鉄筋", "砕石", "砂",
			"アスファルト", "合材", "セメント", "塗料", "ボルト", "部材", "購入品", "material",
		}},
		{Category: CategoryExpense, Keywords: []string{
			"経費", "交通費", "宿泊", "保険", "安全費", "事務", "通信", "諸経費", "expense",
		}},
	}
}

// Classifier assigns categories with an ordered keyword rule list.
type Classifier struct {
	rules []CategoryRule
}

// NewClassifier normalises the keywords of rules once. Rules naming an
// unknown category or carrying no keywords are dropped.
func NewClassifier(rules []CategoryRule) *Classifier {
	c := &Classifier{}
	for _, r := range rules {
		if !r.Category.Valid() {
			continue
		}
		var kws []string
		for _, kw := range r.Keywords {
			if n := normalizeText(kw); n != "" {
				kws = append(kws, n)
			}
		}
		if len(kws) == 0 {
			continue
		}
		c.rules = append(c.rules, CategoryRule{Category: r.Category, Keywords: kws})
	}
	return c
}

// DefaultClassifier returns a classifier over DefaultCategoryRules.
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultCategoryRules())
}

// Classify returns the category of the first rule with a keyword found in
// the row's name or breakdown, or expense when nothing matches.
func (c *Classifier) Classify(row RawRow) Category {
	name := normalizeText(row.Name)
	breakdown := normalizeText(row.Breakdown)
	if name == "" && breakdown == "" {
		return CategoryExpense
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(name, kw) || strings.Contains(breakdown, kw) {
				return r.Category
			}
		}
	}
	return CategoryExpense
}

// normalizeText applies NFKC (full-width ASCII to half-width, half-width
// katakana to full-width, ㎡ to m2) and lower-cases the result.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}
