package service

import (
	"math"
	"math/rand"

	"github.com/NathanielJL/polsim-sub002/internal/models"
)

// Role определяет роль игрока по отношению к политике.
type Role string

const (
	RoleProposer Role = "proposer"
	RoleYesVoter Role = "yes_voter"
	RoleNoVoter  Role = "no_voter"
	RoleAbstain  Role = "abstain"
)

const (
	// Веса комбинированного совпадения: позиции по вопросам доминируют,
	// куб — более грубый сигнал выравнивания.
	issueMatchWeight = 0.7
	cubeMatchWeight  = 0.3
)

// roleWeights — множители влияния по роли. Голос "против" инвертирует
// интерпретацию совпадения: одобрение оппозиции плохой политике.
var roleWeights = map[Role]float64{
	RoleProposer: 1.0,
	RoleYesVoter: 0.4,
	RoleNoVoter:  -0.2,
	RoleAbstain:  0.0,
}

// RoleWeight возвращает множитель роли (0 для неизвестной роли).
func RoleWeight(role Role) float64 {
	return roleWeights[role]
}

// CalculateIssueMatch вычисляет взвешенное совпадение политики с позицией
// когорты по вопросам. Участвуют только вопросы, о которых политика
// высказывается и которые когорте небезразличны (salience > 0).
//
// Метрика асимметричная: 0 при точном совпадении, -100 при максимальном
// расхождении; "пере-совпадение" не вознаграждается, только дистанция
// штрафуется. Возвращает 0, если ни один вопрос не имел ненулевой
// важности — это безразличие, а не ошибка.
func CalculateIssueMatch(policyIssues map[models.IssueKey]float64, cohort models.PoliticalPosition) float64 {
	weightedSum := 0.0
	salienceTotal := 0.0
	for issue, policyValue := range policyIssues {
		salience := cohort.Salience[issue]
		if salience == 0 {
			continue
		}
		distance := policyValue - cohort.Issues[issue] // [-20, 20]
		matchScore := -math.Abs(distance) / 20.0 * 100.0
		weightedSum += matchScore * salience
		salienceTotal += salience
	}
	if salienceTotal == 0 {
		return 0
	}
	return weightedSum / salienceTotal
}

// CalculateCubeMatch вычисляет совпадение по кубу: нормализованная
// 3-D евклидова дистанция, переведенная в [-100, +100]. Нулевая дистанция
// дает +100, максимальная (диагональ куба) — -100. В отличие от issue
// match метрика симметричная и может вознаграждать близость.
func CalculateCubeMatch(policyCube, cohortCube models.CubePosition) float64 {
	distance := policyCube.DistanceTo(cohortCube)
	return 100.0 - (distance/models.MaxCubeDistance)*200.0
}

// CalculatePolicyImpact комбинирует совпадения и взвешивает ролью.
// Результат — неограниченная дельта к записи репутации; зажимание в [0,100]
// происходит при применении.
func CalculatePolicyImpact(role Role, issueMatch, cubeMatch float64) float64 {
	weight := RoleWeight(role)
	if weight == 0 {
		return 0
	}
	combined := issueMatchWeight*issueMatch + cubeMatchWeight*cubeMatch
	return combined * weight
}

// Границы трех полос случайного переноса эндорсмента.
// Недоверенный эндорсер скорее вредит, доверенный скорее помогает,
// но случайность в обе стороны остается всегда.
const (
	endorsementLowCutoff  = 40.0
	endorsementHighCutoff = 60.0
)

// CalculateEndorsementTransfer возвращает случайный перенос одобрения
// от эндорсера к кандидату в зависимости от одобрения самого эндорсера:
// ниже 40 — [-7, +1], 40–59 — [-5, +5], 60 и выше — [-1, +7].
func CalculateEndorsementTransfer(endorserApproval float64, rng *rand.Rand) float64 {
	var lo, hi float64
	switch {
	case endorserApproval < endorsementLowCutoff:
		lo, hi = -7, 1
	case endorserApproval < endorsementHighCutoff:
		lo, hi = -5, 5
	default:
		lo, hi = -1, 7
	}
	return lo + rng.Float64()*(hi-lo)
}
