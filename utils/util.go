package utils

// 找出名称对应的数据。
// 如果names为空则返回所有数据，
// 如果不存在则将失败名称记录到失败列表中。
func Find[K comparable, T any](dataMap map[K]T, data []T, keys []K) (okData []T, failed []K) {
	if len(keys) == 0 {
		return data, nil
	}
	okData = make([]T, 0, len(keys))
	failed = make([]K, 0, len(keys))
	for _, k := range keys {
		if d, ok := dataMap[k]; ok {
			okData = append(okData, d)
		} else {
			failed = append(failed, k)
		}
	}
	return
}
