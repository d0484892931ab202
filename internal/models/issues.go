package models

import "fmt"

// IssueKey — ключ политического вопроса из закрытого каталога.
// Каталог фиксированный: позиции, веса важности и схема политик
// всегда содержат ровно этот набор ключей.
type IssueKey string

const (
	IssueTaxation           IssueKey = "taxation"
	IssueIncomeTax          IssueKey = "income_tax"
	IssueLandSales          IssueKey = "land_sales"
	IssueLandReform         IssueKey = "land_reform"
	IssueWorkerRights       IssueKey = "worker_rights"
	IssueTradeTariffs       IssueKey = "trade_tariffs"
	IssueIndustrialSubsidy  IssueKey = "industrial_subsidies"
	IssueBankingRegulation  IssueKey = "banking_regulation"
	IssueCurrencyPolicy     IssueKey = "currency_policy"
	IssuePublicWorks        IssueKey = "public_works"
	IssueRailways           IssueKey = "railways"
	IssueEducation          IssueKey = "education"
	IssueChurchInfluence    IssueKey = "church_influence"
	IssueReligiousFreedom   IssueKey = "religious_freedom"
	IssueImmigration        IssueKey = "immigration"
	IssueIndigenousRights   IssueKey = "indigenous_rights"
	IssueMilitarySpending   IssueKey = "military_spending"
	IssueConscription       IssueKey = "conscription"
	IssuePressFreedom       IssueKey = "press_freedom"
	IssueSuffrageExpansion  IssueKey = "suffrage_expansion"
	IssueWomensRights       IssueKey = "womens_rights"
	IssueSlaveryAbolition   IssueKey = "slavery_abolition"
	IssueFederalism         IssueKey = "federalism"
	IssueProvincialAutonomy IssueKey = "provincial_autonomy"
	IssueLawAndOrder        IssueKey = "law_and_order"
	IssueJudicialReform     IssueKey = "judicial_reform"
	IssueHealthcare         IssueKey = "healthcare"
	IssuePoorRelief         IssueKey = "poor_relief"
	IssueAgricultureSupport IssueKey = "agriculture_support"
	IssueMiningRights       IssueKey = "mining_rights"
	IssueForeignInvestment  IssueKey = "foreign_investment"
	IssueColonization       IssueKey = "colonization"
	IssueTemperance         IssueKey = "temperance"
	IssueElectoralReform    IssueKey = "electoral_reform"
)

const (
	// IssueCount — размер каталога вопросов.
	IssueCount = 34

	// DefaultIssueSalience — базовая ненулевая важность вопроса,
	// когда конкретное значение не задано генерацией.
	DefaultIssueSalience = 0.1

	// MaxSalienceTotal — максимальная суммарная важность всех вопросов
	// одной когорты. Превышение устраняется пропорциональным
	// масштабированием на этапе генерации, не при чтении.
	MaxSalienceTotal = 10.0
)

// issueCatalog — канонический порядок ключей. При расширении каталога
// нужно атомарно обновить: список ключей, дефолты позиций и дефолты важности.
var issueCatalog = []IssueKey{
	IssueTaxation, IssueIncomeTax, IssueLandSales, IssueLandReform,
	IssueWorkerRights, IssueTradeTariffs, IssueIndustrialSubsidy,
	IssueBankingRegulation, IssueCurrencyPolicy, IssuePublicWorks,
	IssueRailways, IssueEducation, IssueChurchInfluence, IssueReligiousFreedom,
	IssueImmigration, IssueIndigenousRights, IssueMilitarySpending,
	IssueConscription, IssuePressFreedom, IssueSuffrageExpansion,
	IssueWomensRights, IssueSlaveryAbolition, IssueFederalism,
	IssueProvincialAutonomy, IssueLawAndOrder, IssueJudicialReform,
	IssueHealthcare, IssuePoorRelief, IssueAgricultureSupport,
	IssueMiningRights, IssueForeignInvestment, IssueColonization,
	IssueTemperance, IssueElectoralReform,
}

var issueSet = func() map[IssueKey]struct{} {
	set := make(map[IssueKey]struct{}, len(issueCatalog))
	for _, k := range issueCatalog {
		set[k] = struct{}{}
	}
	return set
}()

// AllIssues возвращает каталог ключей в каноническом порядке.
// Возвращается копия, чтобы вызывающий не мог испортить каталог.
func AllIssues() []IssueKey {
	out := make([]IssueKey, len(issueCatalog))
	copy(out, issueCatalog)
	return out
}

// IsKnownIssue сообщает, входит ли ключ в каталог.
func IsKnownIssue(k IssueKey) bool {
	_, ok := issueSet[k]
	return ok
}

// ValidateIssueMap проверяет, что карта содержит только известные ключи.
// Вызывается при загрузке данных (policy schema, table data corrections).
func ValidateIssueMap(m map[IssueKey]float64) error {
	for k := range m {
		if !IsKnownIssue(k) {
			return fmt.Errorf("%w: unknown issue key %q", ErrInvalidInput, k)
		}
	}
	return nil
}

// NormalizeIssuePositions дополняет карту позиций до полного каталога
// (отсутствующие ключи = 0) и зажимает значения в [-10, 10].
func NormalizeIssuePositions(m map[IssueKey]float64) map[IssueKey]float64 {
	out := make(map[IssueKey]float64, IssueCount)
	for _, k := range issueCatalog {
		out[k] = ClampAxis(m[k])
	}
	return out
}

// NormalizeSalience дополняет карту важности до полного каталога
// (отсутствующие ключи = DefaultIssueSalience), зажимает значения в [0, 1]
// и, если сумма превышает MaxSalienceTotal, масштабирует все веса
// пропорционально. Вызывается один раз при генерации когорты.
func NormalizeSalience(m map[IssueKey]float64) map[IssueKey]float64 {
	out := make(map[IssueKey]float64, IssueCount)
	total := 0.0
	for _, k := range issueCatalog {
		v, ok := m[k]
		if !ok {
			v = DefaultIssueSalience
		}
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[k] = v
		total += v
	}
	if total > MaxSalienceTotal {
		scale := MaxSalienceTotal / total
		for k, v := range out {
			out[k] = v * scale
		}
	}
	return out
}
