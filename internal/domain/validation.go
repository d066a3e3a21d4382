package domain

// ValidationStatus 配方可行性状态
type ValidationStatus string

const (
	StatusValidated ValidationStatus = "VALIDADA"  // 全部原料库存充足
	StatusPartial   ValidationStatus = "PARCIAL"   // 部分原料有库存
	StatusRejected  ValidationStatus = "RECHAZADA" // 所有原料均无库存
)

// ValidationItem 单个原料的库存核对结果
type ValidationItem struct {
	ProductID         string  `json:"id_producto"`
	Requested         float64 `json:"solicitado"`
	Available         float64 `json:"disponible"`
	SuggestedBranchID any     `json:"id_sucursal_sugerida"`
}

// Satisfied 判断总库存是否满足需求
func (i ValidationItem) Satisfied() bool {
	return i.Available >= i.Requested
}

// ValidationResult 配方校验结果，Items 顺序与配方原料顺序一致
type ValidationResult struct {
	RecipeID string           `json:"id_receta"`
	Status   ValidationStatus `json:"estado_sugerido"`
	Items    []ValidationItem `json:"items"`
}

// Reconcile 核对单个原料：汇总所有分店库存，并建议第一个能单独满足需求的分店
func Reconcile(ingredient Ingredient, entries []StockEntry) ValidationItem {
	item := ValidationItem{
		ProductID: ingredient.ProductID,
		Requested: ingredient.Quantity,
		Available: TotalQuantity(entries),
	}
	for _, entry := range entries {
		if entry.Quantity() >= ingredient.Quantity {
			item.SuggestedBranchID = entry.BranchID()
			break
		}
	}
	return item
}

// DeriveStatus 根据全部核对结果推导配方状态
// 空列表按"全部满足"处理，结果为 VALIDADA
func DeriveStatus(items []ValidationItem) ValidationStatus {
	allSatisfied := true
	anyAvailable := false
	for _, item := range items {
		if !item.Satisfied() {
			allSatisfied = false
		}
		if item.Available > 0 {
			anyAvailable = true
		}
	}

	switch {
	case allSatisfied:
		return StatusValidated
	case anyAvailable:
		return StatusPartial
	default:
		return StatusRejected
	}
}

// NewValidationResult 由核对结果组装配方校验结果
func NewValidationResult(recipeID string, items []ValidationItem) *ValidationResult {
	if items == nil {
		items = []ValidationItem{}
	}
	return &ValidationResult{
		RecipeID: recipeID,
		Status:   DeriveStatus(items),
		Items:    items,
	}
}
