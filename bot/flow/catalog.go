package flow

import "OrderFlow/entity"

// Step indices of the questionnaire.
const (
	StepPhone      = -1
	StepAddress    = 0
	StepFoodType   = 1
	StepAllergy    = 2
	StepPreference = 3
	StepBudget     = 4
	StepPayment    = 5
	// StepDone is returned by NextStep when nothing is left to ask.
	StepDone = 6
)

// Option ids of the selection steps.
const (
	FoodMeal  = "meal"
	FoodDrink = "drink"

	OtherAllergy    = "other-allergy"
	OtherPreference = "other-preference"
)

// StepDefinition is the static description of a step.
type StepDefinition struct {
	Index   int
	Title   string
	Message string
	Kind    entity.AnswerKind
	Options []Option
}

// Option is a selectable choice of a selection step.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

const (
	authPrompt          = "请输入手机号获取验证码"
	budgetDrinkPrompt   = "我可以花多少钱帮你买奶茶？"
	budgetMealPrompt    = "我可以花多少钱帮你点外卖？"
	freeFoodTypePrompt  = "我已经为您自动选择了奶茶 🧋"
	freePaymentPrompt   = "恭喜！您的免单奶茶已经不远了～"
	searchingPrompt     = "正在为你寻找合适外卖..."
	completedPrompt     = "我去下单，记得保持手机畅通，不要错过外卖员电话哦"
	paymentConfirmValue = "已确认支付"
)

var foodTypeOptions = []Option{
	{ID: FoodMeal, Label: "吃饭"},
	{ID: FoodDrink, Label: "喝奶茶"},
}

var allergyOptions = []Option{
	{ID: "seafood", Label: "海鲜类"},
	{ID: "nuts", Label: "坚果类"},
	{ID: "eggs", Label: "蛋类"},
	{ID: "soy", Label: "大豆类"},
	{ID: "dairy", Label: "乳制品类"},
	{ID: OtherAllergy, Label: "其他"},
}

var preferenceOptions = []Option{
	{ID: "spicy", Label: "香辣"},
	{ID: "mild", Label: "清淡"},
	{ID: "sweet", Label: "甜口"},
	{ID: "sour-spicy", Label: "酸辣"},
	{ID: "salty", Label: "咸鲜"},
	{ID: OtherPreference, Label: "其他"},
}

// Catalog is the ordered list of steps. It never changes at runtime.
var Catalog = []StepDefinition{
	{Index: StepAddress, Title: "配送地址", Message: "想在哪里收到你的外卖？", Kind: entity.KindAddress},
	{Index: StepFoodType, Title: "食物类型", Message: "喝奶茶还是吃饭呢？", Kind: entity.KindFoodType, Options: foodTypeOptions},
	{Index: StepAllergy, Title: "忌口说明", Message: "有忌口或者过敏源嘛？", Kind: entity.KindAllergy, Options: allergyOptions},
	{Index: StepPreference, Title: "口味偏好", Message: "想吃什么口味的？", Kind: entity.KindPreference, Options: preferenceOptions},
	{Index: StepBudget, Title: "预算设置", Message: "好的，这一顿打算花多少钱？", Kind: entity.KindBudget},
	{Index: StepPayment, Title: "支付", Message: "请扫码下单，记得备注完整电话号哦", Kind: entity.KindPayment},
}

// BudgetOptions are quick picks shown for the budget step.
func BudgetOptions(drink bool) []string {
	if drink {
		return []string{"15", "20", "30"}
	}
	return []string{"20", "30", "50", "100"}
}

// Definition returns the catalog entry for a step index.
func Definition(step int) (StepDefinition, bool) {
	if step < 0 || step >= len(Catalog) {
		return StepDefinition{}, false
	}
	return Catalog[step], true
}

// Prompt resolves the text of a step, applying branch and free-order overrides.
func Prompt(step int, drink, freeOrder bool) string {
	def, ok := Definition(step)
	if !ok {
		return ""
	}
	if freeOrder {
		switch def.Kind {
		case entity.KindFoodType:
			return freeFoodTypePrompt
		case entity.KindPayment:
			return freePaymentPrompt
		}
	}
	if def.Kind == entity.KindBudget && !freeOrder {
		if drink {
			return budgetDrinkPrompt
		}
		return budgetMealPrompt
	}
	return def.Message
}

func optionLabel(options []Option, id string) string {
	for _, o := range options {
		if o.ID == id {
			return o.Label
		}
	}
	return id
}
