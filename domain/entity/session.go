package entity

// SessionState 视图会话状态
type SessionState string

const (
	StateIdle      SessionState = "idle"      // 尚未选择工作表
	StateLoading   SessionState = "loading"   // 有请求在途
	StateReady     SessionState = "ready"     // 当前页已绘制
	StateError     SessionState = "error"     // 最近一次请求失败，可 reload
	StateEndOfData SessionState = "endOfData" // 向后翻页遇到空页
)

// ViewSession 会话状态快照
// 会话本身只由其控制器持有和修改，这里只是对外暴露的副本
type ViewSession struct {
	ID             string          `json:"sessionId"`
	FilePath       string          `json:"filePath"`
	Sheet          SheetDescriptor `json:"sheet"`
	PageSize       int             `json:"pageSize"`
	CurrentPage    int             `json:"currentPage"`
	State          SessionState    `json:"state"`
	LastRequestSeq int64           `json:"lastRequestSeq"`
	PagesLoaded    int             `json:"pagesLoaded"`
}
