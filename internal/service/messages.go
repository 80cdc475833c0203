package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/scanbill/internal/billing"
	"github.com/mmynk/scanbill/internal/models"
)

// Amounts travel as decimal strings with two fractional digits, e.g. "45.50".

type Empty struct{}

type DraftLine struct {
	ProductID string `json:"productId"`
	PSUCode   string `json:"psuCode"`
	Weight    string `json:"weight"`
	Price     string `json:"price"`
}

type Draft struct {
	Lines            []DraftLine `json:"lines"`
	Total            string      `json:"total"`
	PaymentConfirmed bool        `json:"paymentConfirmed"`
	CanCommit        bool        `json:"canCommit"`
	Reason           string      `json:"reason,omitempty"`
	Scanning         bool        `json:"scanning"`
}

type ScanRequest struct {
	Text string `json:"text"`
}

type ScanResponse struct {
	Result string `json:"result"`
	Draft  Draft  `json:"draft"`
}

type SetPriceRequest struct {
	Index int    `json:"index"`
	Price string `json:"price"`
}

type RemoveItemRequest struct {
	Index int `json:"index"`
}

type ConfirmPaymentRequest struct {
	Confirmed bool `json:"confirmed"`
}

type DraftResponse struct {
	Draft Draft `json:"draft"`
}

type GenerateBillResponse struct {
	BillID int64 `json:"billId"`
	Draft  Draft `json:"draft"`
}

type DailyStats struct {
	Date      string `json:"date"`
	ItemCount int    `json:"itemCount"`
	Revenue   string `json:"revenue"`
	BillCount int    `json:"billCount"`
}

type BillSummary struct {
	ID          int64  `json:"id"`
	BillDate    string `json:"billDate"`
	TotalAmount string `json:"totalAmount"`
	ItemCount   int    `json:"itemCount"`
}

type DashboardResponse struct {
	Today           DailyStats    `json:"today"`
	LifetimeRevenue string        `json:"lifetimeRevenue"`
	RecentBills     []BillSummary `json:"recentBills"`
}

type LoginRequest struct {
	Secret string `json:"secret"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Item struct {
	ItemID      int64  `json:"itemId"`
	BillID      int64  `json:"billId"`
	BillDate    string `json:"billDate"`
	TotalAmount string `json:"totalAmount"`
	ProductID   string `json:"productId"`
	PSUCode     string `json:"psuCode"`
	Weight      string `json:"weight"`
	Price       string `json:"price"`
}

type ListItemsResponse struct {
	Items []Item `json:"items"`
}

type ItemRequest struct {
	ItemID int64 `json:"itemId"`
}

type ItemResponse struct {
	Item Item `json:"item"`
}

type UpdateItemRequest struct {
	ItemID  int64  `json:"itemId"`
	PSUCode string `json:"psuCode"`
	Weight  string `json:"weight"`
	Price   string `json:"price"`
}

type DeleteItemResponse struct {
	BillDeleted bool `json:"billDeleted"`
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toDraft(v billing.DraftView) Draft {
	lines := make([]DraftLine, len(v.Lines))
	for i, l := range v.Lines {
		lines[i] = DraftLine{
			ProductID: l.ProductID,
			PSUCode:   l.PSUCode,
			Weight:    l.Weight,
			Price:     amount(l.Price),
		}
	}
	return Draft{
		Lines:            lines,
		Total:            amount(v.Total),
		PaymentConfirmed: v.PaymentConfirmed,
		CanCommit:        v.CanCommit,
		Reason:           v.Reason,
		Scanning:         v.Scanning,
	}
}

func toItem(it models.JoinedItem) Item {
	return Item{
		ItemID:      it.ItemID,
		BillID:      it.BillID,
		BillDate:    it.BillDate,
		TotalAmount: amount(it.TotalAmount),
		ProductID:   it.ProductID,
		PSUCode:     it.PSUCode,
		Weight:      it.Weight,
		Price:       amount(it.Price),
	}
}
