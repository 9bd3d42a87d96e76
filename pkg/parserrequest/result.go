package parserrequest

type UserStat struct {
	VKID  int64 `json:"vk_id"`
	Count int   `json:"count"`
}

// ResultData is stored in result_data once a request succeeds or comes back
// empty.
type ResultData struct {
	Message  string     `json:"message"`
	UserStat []UserStat `json:"user_stat"`
}

func (r ResultData) normalized() ResultData {
	if r.UserStat == nil {
		r.UserStat = []UserStat{}
	}
	return r
}
