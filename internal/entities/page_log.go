package entities

// PageLog is one reading session. CurrentPageAfterLog is a snapshot of the
// book's progress right after the session was recorded.
type PageLog struct {
	ID                  uint   `gorm:"column:page_log_id;primaryKey" json:"page_log_id"`
	BookID              uint   `gorm:"column:book_id;not null;index" json:"book_id"`
	StartPage           int    `gorm:"column:start_page;not null" json:"start_page"`
	EndPage             int    `gorm:"column:end_page;not null" json:"end_page"`
	CurrentPageAfterLog int    `gorm:"column:current_page_after_log;not null" json:"current_page_after_log"`
	TotalPageRead       int    `gorm:"column:total_page_read;not null" json:"total_page_read"`
	ReadDate            Date   `gorm:"column:read_date;not null;index" json:"read_date"`
	PageNotes           string `gorm:"column:page_notes;type:text" json:"page_notes,omitempty"`
	Book                *Book  `gorm:"foreignKey:BookID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PageLog) TableName() string {
	return "page_logs"
}

type PageLogInput struct {
	StartPage int    `json:"start_page" validate:"gte=0"`
	EndPage   int    `json:"end_page" validate:"gte=0"`
	ReadDate  Date   `json:"read_date"`
	PageNotes string `json:"page_notes" validate:"max=10000"`
}

// PagesRead counts the pages covered by a session. Page 0 means "not started"
// and is never counted, so start=0,end=10 and start=1,end=10 both count 10.
func PagesRead(start, end int) int {
	if start < 1 {
		start = 1
	}
	n := end - start + 1
	if n < 0 {
		return 0
	}
	return n
}
