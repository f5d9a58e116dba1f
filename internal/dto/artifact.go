package dto

// ── 产物模块 DTO ──

// ArtifactResponse 预约产物详情
type ArtifactResponse struct {
	ID            string  `json:"id"`
	ReservationID string  `json:"reservation_id"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	Attempts      int     `json:"attempts"`
	LastAttemptAt *string `json:"last_attempt_at,omitempty"`
	LastError     *string `json:"last_error,omitempty"`
	Path          string  `json:"path,omitempty"`
	Event         string  `json:"event,omitempty"`
	UpdatedAt     string  `json:"updated_at"`
}

// ── 审计模块 DTO ──

// AuditListRequest 审计事件列表查询
type AuditListRequest struct {
	EventType string `form:"event_type"`
	Page      int    `form:"page,default=1"       binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size,default=50" binding:"omitempty,min=1,max=200"`
}

// AuditEventResponse 审计事件详情
type AuditEventResponse struct {
	ID          int64                  `json:"id"`
	EventType   string                 `json:"event_type"`
	ActorID     *string                `json:"actor_id,omitempty"`
	SubjectType *string                `json:"subject_type,omitempty"`
	SubjectID   *string                `json:"subject_id,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   string                 `json:"created_at"`
}
