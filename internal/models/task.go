package model

type Task struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title    string `gorm:"size:200;not null" json:"title" validate:"required,max=200"`
	DueDate  *Date  `gorm:"type:date" json:"dueDate"`
	Priority string `gorm:"size:20" json:"priority" validate:"max=20"`
	Status   string `gorm:"size:20" json:"status" validate:"max=20"`
}

func (Task) TableName() string {
	return "tasks"
}

// Overwrite copies every client-editable field from src, leaving the id untouched.
func (t *Task) Overwrite(src Task) {
	t.Title = src.Title
	t.DueDate = src.DueDate
	t.Priority = src.Priority
	t.Status = src.Status
}
