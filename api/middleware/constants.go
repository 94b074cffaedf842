package middleware

// ContextKeyUserID ClerkAuth 写入的用户 ID（JWT subject）
// 打开会话时读取，记入浏览历史的 OpenedBy
const ContextKeyUserID = "userID"
