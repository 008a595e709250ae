// 本文件用于维护关键词打分的领域词表
package match

// 物流/地址/清关/承运商领域的固定显著词表
// 词表是全局的 不随知识库条目变化（条目级关键词暂不引入，保持现有口径）
var domainVocabulary = []string{
	// 地址
	"address", "street", "house", "housenumber", "postcode", "postal", "zip",
	"city", "country", "state", "region",
	// 发货
	"shipment", "parcel", "label", "tracking", "pickup", "delivery", "return",
	"weight", "dimensions", "insurance", "service",
	// 清关
	"customs", "declaration", "hs", "eori", "vat", "duty", "invoice",
	// 承运商与平台
	"carrier", "sendcloud", "dhl", "dpd", "ups", "gls", "postnl", "fedex",
	// 联系方式
	"phone", "email",
}

var vocabularySet = buildVocabularySet()

func buildVocabularySet() map[string]struct{} {
	out := make(map[string]struct{}, len(domainVocabulary))
	for _, term := range domainVocabulary {
		out[term] = struct{}{}
	}
	return out
}
