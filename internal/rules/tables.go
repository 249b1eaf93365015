package rules

import (
	"sort"
)

var outfitAccessories = map[string][]string{
	"t-shirt":  {"watch", "sunglasses", "cap", "crossbody bag"},
	"shirt":    {"watch", "belt", "formal shoes", "wallet"},
	"blouse":   {"handbag", "earrings", "light necklace"},
	"top":      {"sling bag", "bracelet", "watch"},
	"dress":    {"handbag", "earrings", "heels", "clutch"},
	"kurti":    {"dupatta", "jhumkas", "bangles", "ethnic bag"},
	"saree":    {"blouse jewelry", "bangles", "clutch", "hair accessories"},
	"lehenga":  {"heavy jewelry", "clutch", "bangles", "hair pins"},
	"jeans":    {"belt", "wallet", "sneakers"},
	"trousers": {"belt", "formal shoes", "watch"},
	"shorts":   {"cap", "sunglasses", "waist pouch"},
	"skirt":    {"handbag", "anklet", "bracelet"},
	"jacket":   {"scarf", "gloves", "beanie"},
	"coat":     {"leather gloves", "scarf", "formal shoes"},
	"hoodie":   {"backpack", "cap", "earphones"},
	"sweater":  {"scarf", "watch"},
	"sneakers": {"ankle socks", "shoe cleaner"},
	"sandals":  {"footwear spray", "sunscreen"},
	"heels":    {"foot cushions", "clutch"},
	"boots":    {"thermal socks", "shoe spray"},
	"travel":   {"backpack", "power bank", "sunglasses"},
	"gym wear": {"gym bag", "water bottle", "fitness band"},
}

var defaultOutfitAccessories = []string{"watch", "wallet"}

var occasionAccessories = map[string][]string{
	"office":  {"watch", "formal belt", "laptop bag"},
	"party":   {"clutch", "statement jewelry"},
	"travel":  {"backpack", "power bank", "sunglasses"},
	"gym":     {"gym bag", "water bottle"},
	"college": {"backpack", "earphones"},
}

func OutfitAccessories(outfit string) []string {
	if items, ok := outfitAccessories[normalize(outfit)]; ok {
		return clone(items)
	}
	return clone(defaultOutfitAccessories)
}

func OccasionAccessories(occasion string) []string {
	return clone(occasionAccessories[normalize(occasion)])
}

// RainAccessories maps rain volume (mm) to gear.
func RainAccessories(rain float64) []string {
	switch {
	case rain <= 0:
		return []string{}
	case rain < 2:
		return []string{"umbrella"}
	case rain < 10:
		return []string{"umbrella", "waterproof bag cover"}
	default:
		return []string{"raincoat", "waterproof backpack", "quick-dry towel"}
	}
}

func TemperatureAccessories(temp float64) []string {
	switch {
	case temp <= 5:
		return []string{"woolen gloves", "beanie", "thermal socks", "scarf"}
	case temp <= 12:
		return []string{"scarf", "gloves"}
	case temp <= 18:
		return []string{"light scarf"}
	case temp >= 30:
		return []string{"sunglasses", "cap"}
	default:
		return []string{}
	}
}

// Accessories is the sorted union of the outfit, temperature, rain and
// occasion tables.
func Accessories(outfit string, temp, rain float64, occasion string) []string {
	seen := map[string]struct{}{}
	for _, group := range [][]string{
		OutfitAccessories(outfit),
		TemperatureAccessories(temp),
		RainAccessories(rain),
		OccasionAccessories(occasion),
	} {
		for _, item := range group {
			seen[item] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

const (
	CategoryHot  = "hot"
	CategoryWarm = "warm"
	CategoryCool = "cool"
	CategoryCold = "cold"
)

func TemperatureCategory(temp float64) string {
	switch {
	case temp >= 25:
		return CategoryHot
	case temp >= 15:
		return CategoryWarm
	case temp >= 10:
		return CategoryCool
	default:
		return CategoryCold
	}
}

const defaultAlternativesKey = "default"

var alternatives = map[string]map[string][]string{
	"t-shirt": {
		CategoryHot:  {"Cotton t-shirt", "Linen t-shirt", "Sleeveless top"},
		CategoryWarm: {"Cotton t-shirt", "Light polyester top"},
		CategoryCool: {"Full-sleeve cotton shirt", "Hoodie", "Sweatshirt"},
		CategoryCold: {"Thermal top", "Wool sweater", "Heavy hoodie"},
	},
	"shirt": {
		CategoryHot:  {"Linen shirt", "Cotton shirt (light)", "Hawaiian shirt"},
		CategoryWarm: {"Cotton shirt", "Casual button-up"},
		CategoryCool: {"Cotton shirt with layer", "Light jacket"},
		CategoryCold: {"Wool shirt", "Thermal shirt"},
	},
	"blouse": {
		CategoryHot:  {"Cotton blouse", "Linen blouse", "Sleeveless blouse"},
		CategoryWarm: {"Cotton blouse", "Silk blouse"},
		CategoryCool: {"Wool blouse", "Full-sleeve blouse"},
		CategoryCold: {"Thermal blouse", "Wool blend blouse"},
	},
	"top": {
		CategoryHot:  {"Cotton top", "Linen top", "Sleeveless tank top"},
		CategoryWarm: {"Cotton top", "Light polyester top"},
		CategoryCool: {"Full-sleeve top", "Thermal top"},
		CategoryCold: {"Wool top", "Thermal top", "Sweater"},
	},
	"kurti": {
		CategoryHot:  {"Cotton kurti", "Linen kurti", "Rayon kurti"},
		CategoryWarm: {"Cotton kurti", "Linen blend kurti"},
		CategoryCool: {"Wool blend kurti", "Acrylic kurti"},
		CategoryCold: {"Thermal kurti", "Wool kurti"},
	},
	"dress": {
		CategoryHot:  {"Cotton dress", "Linen dress", "Light summer dress"},
		CategoryWarm: {"Cotton dress", "Casual dress"},
		CategoryCool: {"Knee-length dress with tights", "Maxi dress with layers"},
		CategoryCold: {"Long-sleeve dress", "Wool dress", "Thermal dress"},
	},
	"saree": {
		CategoryHot:  {"Cotton saree", "Linen saree", "Lightweight silk"},
		CategoryWarm: {"Cotton saree", "Silk saree"},
		CategoryCool: {"Wool saree", "Heavy silk saree"},
		CategoryCold: {"Wool saree", "Thermal saree"},
	},
	"lehenga": {
		CategoryHot:  {"Lightweight lehenga", "Cotton lehenga"},
		CategoryWarm: {"Cotton lehenga", "Casual lehenga"},
		CategoryCool: {"Wool lehenga", "Heavy silk lehenga"},
		CategoryCold: {"Thermal lehenga", "Wool lehenga"},
	},
	"jeans": {
		CategoryHot:  {"Cotton shorts", "Linen shorts", "Light jeans"},
		CategoryWarm: {"Cotton jeans", "Casual jeans"},
		CategoryCool: {"Heavy jeans", "Thermal jeans"},
		CategoryCold: {"Thermal jeans", "Wool pants"},
	},
	"trousers": {
		CategoryHot:  {"Cotton shorts", "Linen trousers", "Light trousers"},
		CategoryWarm: {"Cotton trousers", "Casual pants"},
		CategoryCool: {"Wool trousers", "Heavy cotton trousers"},
		CategoryCold: {"Thermal trousers", "Wool pants"},
	},
	"shorts": {
		CategoryHot:  {"Cotton shorts", "Linen shorts", "Light shorts"},
		CategoryWarm: {"Cotton shorts", "Casual shorts"},
		CategoryCool: {"Long pants", "Jeans", "Trousers"},
		CategoryCold: {"Long thermal pants", "Wool trousers"},
	},
	"skirt": {
		CategoryHot:  {"Cotton skirt", "Linen skirt", "Light skirt"},
		CategoryWarm: {"Cotton skirt", "Casual skirt"},
		CategoryCool: {"Long skirt with tights", "Wool skirt"},
		CategoryCold: {"Thermal skirt with tights", "Wool pants"},
	},
	"palazzo": {
		CategoryHot:  {"Cotton palazzo", "Linen palazzo"},
		CategoryWarm: {"Cotton palazzo", "Light palazzo"},
		CategoryCool: {"Wool palazzo", "Heavy fabric palazzo"},
		CategoryCold: {"Thermal palazzo", "Wool pants"},
	},
	"leggings": {
		CategoryHot:  {"Cotton leggings", "Lightweight leggings"},
		CategoryWarm: {"Cotton leggings", "Casual leggings"},
		CategoryCool: {"Thermal leggings", "Wool leggings"},
		CategoryCold: {"Thermal leggings", "Wool tights"},
	},
	"jacket": {
		CategoryHot:  {"Light cotton jacket", "Denim jacket (light)"},
		CategoryWarm: {"Light jacket", "Denim jacket"},
		CategoryCool: {"Heavy jacket", "Wool jacket"},
		CategoryCold: {"Winter jacket", "Thermal jacket", "Puffer jacket"},
	},
	"coat": {
		CategoryHot:  {"Not recommended", "Light cardigan instead"},
		CategoryWarm: {"Light cardigan", "Blazer"},
		CategoryCool: {"Heavy coat", "Wool coat"},
		CategoryCold: {"Winter coat", "Wool coat", "Puffer coat"},
	},
	"hoodie": {
		CategoryHot:  {"Not recommended", "Cotton t-shirt instead"},
		CategoryWarm: {"Light hoodie", "Sweatshirt"},
		CategoryCool: {"Hoodie", "Sweatshirt"},
		CategoryCold: {"Heavy hoodie", "Thermal hoodie"},
	},
	"sweater": {
		CategoryHot:  {"Not recommended", "Cotton t-shirt instead"},
		CategoryWarm: {"Light sweater", "Cardigan"},
		CategoryCool: {"Sweater", "Wool sweater"},
		CategoryCold: {"Heavy wool sweater", "Thermal sweater"},
	},
	"sweatshirt": {
		CategoryHot:  {"Not recommended", "Cotton t-shirt instead"},
		CategoryWarm: {"Light sweatshirt"},
		CategoryCool: {"Sweatshirt", "Hoodie"},
		CategoryCold: {"Heavy sweatshirt", "Thermal sweatshirt"},
	},
	"sandals": {
		CategoryHot:  {"Sandals", "Flip-flops", "Open-toe shoes"},
		CategoryWarm: {"Sandals", "Light shoes"},
		CategoryCool: {"Closed shoes", "Sneakers"},
		CategoryCold: {"Boots", "Thermal boots", "Closed shoes"},
	},
	"sneakers": {
		CategoryHot:  {"Light sneakers", "Canvas shoes"},
		CategoryWarm: {"Sneakers", "Casual shoes"},
		CategoryCool: {"Sneakers", "Closed shoes"},
		CategoryCold: {"Boots", "Thermal boots", "Heavy sneakers"},
	},
	"heels": {
		CategoryHot:  {"Sandal heels", "Light heels"},
		CategoryWarm: {"Heels", "Casual heels"},
		CategoryCool: {"Closed heels", "Boots"},
		CategoryCold: {"Thermal boots", "Heavy boots"},
	},
	"boots": {
		CategoryHot:  {"Not recommended", "Sandals instead"},
		CategoryWarm: {"Light boots", "Casual shoes"},
		CategoryCool: {"Boots", "Closed shoes"},
		CategoryCold: {"Heavy boots", "Thermal boots", "Winter boots"},
	},
	"flats": {
		CategoryHot:  {"Flat sandals", "Open-toe flats"},
		CategoryWarm: {"Flats", "Light shoes"},
		CategoryCool: {"Closed flats", "Casual shoes"},
		CategoryCold: {"Thermal flats", "Boots"},
	},
	"loafers": {
		CategoryHot:  {"Not recommended", "Sandals instead"},
		CategoryWarm: {"Loafers", "Light shoes"},
		CategoryCool: {"Loafers", "Closed shoes"},
		CategoryCold: {"Thermal loafers", "Boots"},
	},
	defaultAlternativesKey: {
		CategoryHot:  {"Light cotton clothing", "Breathable fabrics"},
		CategoryWarm: {"Comfortable casual wear"},
		CategoryCool: {"Layered clothing", "Insulated fabrics"},
		CategoryCold: {"Heavy winter wear", "Thermal clothing"},
	},
}

// Alternatives suggests garments better suited to temp. Unknown outfits use
// the default row.
func Alternatives(outfit string, temp float64) []string {
	category := TemperatureCategory(temp)
	if row, ok := alternatives[normalize(outfit)]; ok {
		if items := row[category]; len(items) > 0 {
			return clone(items)
		}
	}
	return clone(alternatives[defaultAlternativesKey][category])
}

type Packing struct {
	Tops        []string `json:"tops"`
	Bottoms     []string `json:"bottoms"`
	Outerwear   []string `json:"outerwear"`
	Footwear    []string `json:"footwear"`
	Accessories []string `json:"accessories"`
}

type packingBand struct {
	upTo    float64
	packing Packing
}

var packingBands = []packingBand{
	{5, Packing{
		Tops:        []string{"thermal top", "wool sweater"},
		Bottoms:     []string{"thermal pants", "thick trousers"},
		Outerwear:   []string{"heavy jacket", "puffer coat"},
		Footwear:    []string{"insulated boots"},
		Accessories: []string{"gloves", "woolen cap", "scarf"},
	}},
	{12, Packing{
		Tops:        []string{"full sleeve shirts", "wool sweaters"},
		Bottoms:     []string{"jeans", "warm trousers"},
		Outerwear:   []string{"jackets"},
		Footwear:    []string{"closed shoes"},
		Accessories: []string{"light scarf"},
	}},
	{18, Packing{
		Tops:        []string{"full sleeve t-shirts", "light sweaters"},
		Bottoms:     []string{"jeans", "chinos"},
		Outerwear:   []string{"light jacket", "hoodie"},
		Footwear:    []string{"sneakers"},
		Accessories: []string{"watch"},
	}},
	{24, Packing{
		Tops:        []string{"cotton shirts", "t-shirts"},
		Bottoms:     []string{"jeans", "skirts"},
		Outerwear:   []string{"light shrug"},
		Footwear:    []string{"sneakers", "sandals"},
		Accessories: []string{"sunglasses"},
	}},
	{30, Packing{
		Tops:        []string{"loose cotton t-shirts", "cotton shirts"},
		Bottoms:     []string{"jeans", "palazzo pants", "skirts"},
		Outerwear:   []string{},
		Footwear:    []string{"sandals", "breathable shoes"},
		Accessories: []string{"cap", "sunglasses"},
	}},
	{36, Packing{
		Tops:        []string{"very light cotton tops", "sleeveless tops"},
		Bottoms:     []string{"shorts", "skirts", "loose pants"},
		Outerwear:   []string{},
		Footwear:    []string{"sandals", "flip-flops"},
		Accessories: []string{"cap", "sunglasses", "sunscreen"},
	}},
	{inf, Packing{
		Tops:        []string{"ultra-light cotton tops"},
		Bottoms:     []string{"shorts"},
		Outerwear:   []string{},
		Footwear:    []string{"open sandals"},
		Accessories: []string{"cap", "sunglasses", "hydration bottle"},
	}},
}

// PackingList picks the band containing temp and adds rain gear when rain
// reaches 10.
func PackingList(temp, rain float64) Packing {
	var band Packing
	for _, b := range packingBands {
		if temp <= b.upTo {
			band = b.packing
			break
		}
	}
	out := Packing{
		Tops:        clone(band.Tops),
		Bottoms:     clone(band.Bottoms),
		Outerwear:   clone(band.Outerwear),
		Footwear:    clone(band.Footwear),
		Accessories: clone(band.Accessories),
	}
	if rain >= 10 {
		out.Outerwear = append(out.Outerwear, "raincoat")
		out.Footwear = append(out.Footwear, "waterproof shoes")
		out.Accessories = append(out.Accessories, "umbrella")
	}
	return out
}

func clone(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
