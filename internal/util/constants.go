package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 提交附件允许的类型
const (
	MimePDF         = "application/pdf"
	MimeZip         = "application/zip"
	MimeText        = "text/plain"
	MimeOctetStream = "application/octet-stream"
)
