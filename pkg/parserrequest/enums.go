package parserrequest

// ParserType is the discriminator stored in input_data.parser_type.
type ParserType string

const (
	ParserTypeSimpleDownload        ParserType = "VK_SIMPLE_DOWNLOAD"
	ParserTypeDownloadAndParsePosts ParserType = "VK_DOWNLOAD_AND_PARSED_POSTS"
)

// ParserTypes lists every known parser type in a stable order.
func ParserTypes() []ParserType {
	return []ParserType{
		ParserTypeSimpleDownload,
		ParserTypeDownloadAndParsePosts,
	}
}

func (t ParserType) Valid() bool {
	return t == ParserTypeSimpleDownload || t == ParserTypeDownloadAndParsePosts
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusEmpty      Status = "EMPTY"
	StatusFailed     Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccessful, StatusEmpty, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == StatusSuccessful || s == StatusEmpty || s == StatusFailed
}
