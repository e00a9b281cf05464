package inquiries

import "github.com/tradehub/tradehub-backend/pkg/db/models"

func newInquiry(m *models.Inquiry) Inquiry {
	return Inquiry{
		ID:                m.ID,
		GigID:             m.GigID,
		BuyerID:           m.BuyerID,
		SupplierID:        m.SupplierID,
		RequestedQuantity: m.RequestedQuantity,
		RequestedPrice:    m.RequestedPrice,
		ProposedQuantity:  m.ProposedQuantity,
		ProposedPrice:     m.ProposedPrice,
		FinalQuantity:     m.FinalQuantity,
		FinalPrice:        m.FinalPrice,
		Message:           m.Message,
		Status:            m.Status,
		Round:             m.Round,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func newInquiries(rows []models.Inquiry) []Inquiry {
	out := make([]Inquiry, 0, len(rows))
	for i := range rows {
		out = append(out, newInquiry(&rows[i]))
	}
	return out
}
