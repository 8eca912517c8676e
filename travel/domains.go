package travel

import (
	"github.com/tripweaver/tripweaver/ai"
	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/search"
)

// Worker names as they appear in progress events.
const (
	WorkerParser      = "request-parser"
	WorkerAttractions = "attraction-expert"
	WorkerRestaurants = "restaurant-expert"
	WorkerLodging     = "lodging-expert"
	WorkerComposer    = "plan-composer"
	WorkerValidator   = "budget-validator"
)

var attractionDomain = DomainConfig{
	Name: WorkerAttractions,
	SystemPrompt: `You are a travel attraction expert. You recommend sights worth
visiting at the destination, with accurate entrance fees where they can
be confirmed. unitPrice is the per-person entrance fee in won.`,
	QueryTemplate:      "%s recommended attractions entrance fee",
	CheapQueryTemplate: "%s free or cheap attractions",
	PriceRules: []PriceRule{
		{Price: 1000, Keywords: []string{"nature", "park", "beach", "trail", "자연", "공원", "해변", "올레길"}},
		{Price: 5000, Keywords: []string{"museum", "gallery", "박물관", "미술관"}},
		{Price: 30000, Keywords: []string{"theme park", "amusement", "aquarium", "테마파크", "놀이공원", "아쿠아리움"}},
		{Price: 3000, Keywords: []string{"temple", "heritage", "palace", "사찰", "유적지", "궁"}},
		{Price: 15000, Keywords: []string{"observatory", "tower", "cable car", "전망대", "타워", "케이블카"}},
	},
	FallbackPrice: 8000,
}

var restaurantDomain = DomainConfig{
	Name: WorkerRestaurants,
	SystemPrompt: `You are a local food expert. You recommend restaurants at the
destination that travelers actually go to, covering a mix of meal
styles. unitPrice is the typical per-person meal price in won.`,
	QueryTemplate:      "%s famous restaurants price",
	CheapQueryTemplate: "%s cheap good value restaurants",
	PriceRules: []PriceRule{
		{Price: 50000, Keywords: []string{"fine dining", "omakase", "course", "파인다이닝", "오마카세", "코스"}},
		{Price: 30000, Keywords: []string{"seafood", "sashimi", "grill", "bbq", "해산물", "회", "흑돼지", "구이"}},
		{Price: 8000, Keywords: []string{"cafe", "snack", "bakery", "카페", "분식", "베이커리"}},
		{Price: 15000, Keywords: []string{"restaurant", "식당", "맛집"}},
	},
	FallbackPrice: 12000,
}

var lodgingDomain = DomainConfig{
	Name: WorkerLodging,
	SystemPrompt: `You are a lodging expert. You recommend places to stay at the
destination across price tiers. unitPrice is the per-night rate in won.`,
	QueryTemplate:      "%s accommodation recommendation price",
	CheapQueryTemplate: "%s cheap accommodation guesthouse",
	PriceRules: []PriceRule{
		{Price: 180000, Keywords: []string{"resort", "리조트"}},
		{Price: 150000, Keywords: []string{"hotel", "호텔"}},
		{Price: 100000, Keywords: []string{"pension", "펜션"}},
		{Price: 60000, Keywords: []string{"guesthouse", "hostel", "게스트하우스", "호스텔"}},
	},
	FallbackPrice: 120000,
}

// NewAttractionWorker creates the attraction expert.
func NewAttractionWorker(client ai.Client, source search.InformationSource, logger core.Logger) *ExpertWorker {
	return NewExpertWorker(attractionDomain, client, source, logger)
}

// NewRestaurantWorker creates the restaurant expert.
func NewRestaurantWorker(client ai.Client, source search.InformationSource, logger core.Logger) *ExpertWorker {
	return NewExpertWorker(restaurantDomain, client, source, logger)
}

// NewLodgingWorker creates the lodging expert.
func NewLodgingWorker(client ai.Client, source search.InformationSource, logger core.Logger) *ExpertWorker {
	return NewExpertWorker(lodgingDomain, client, source, logger)
}
