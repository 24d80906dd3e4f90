package embedding

// semanticAnchors maps curated catalog terms to a fixed anchor position in
// the embedding vector. Each keyword bumps the 3 positions starting at its
// anchor, so related terms (shared or nearby anchors) end up with
// overlapping active dimensions and a higher cosine similarity than the
// hash spread alone would give them.
//
// Anchors are spread across the 1536 dimensions in loose topical bands:
// phones, TVs and displays, computers, audio, wearables, photography,
// gaming, home, fashion. The values are part of the persisted-embedding
// contract; do not renumber.
var semanticAnchors = map[string]int{
	// Phones
	"iphone":     12,
	"apple":      15,
	"phone":      18,
	"smartphone": 18,
	"mobile":     21,
	"android":    27,
	"galaxy":     30,
	"pixel":      33,

	// TVs and displays
	"tv":         210,
	"television": 210,
	"qled":       216,
	"oled":       219,
	"screen":     222,
	"display":    222,
	"monitor":    228,
	"hdr":        231,

	// Brands
	"samsung": 405,
	"sony":    411,
	"lg":      417,
	"dell":    423,
	"lenovo":  429,
	"bose":    435,
	"nike":    441,
	"adidas":  447,

	// Computers
	"laptop":    610,
	"macbook":   613,
	"computer":  616,
	"desktop":   619,
	"tablet":    625,
	"ipad":      628,
	"keyboard":  634,
	"processor": 640,

	// Audio
	"headphones": 810,
	"earbuds":    813,
	"speaker":    816,
	"soundbar":   819,
	"wireless":   825,
	"bluetooth":  828,

	// Wearables and photography
	"watch":      1010,
	"smartwatch": 1010,
	"fitness":    1016,
	"camera":     1022,
	"lens":       1025,
	"drone":      1031,

	// Gaming
	"gaming":      1210,
	"console":     1213,
	"playstation": 1216,
	"xbox":        1219,
	"nintendo":    1222,
	"controller":  1228,

	// Home and fashion
	"kitchen":   1410,
	"vacuum":    1413,
	"furniture": 1416,
	"sofa":      1419,
	"shoes":     1425,
	"shirt":     1428,
	"dress":     1431,
	"jacket":    1434,
}
