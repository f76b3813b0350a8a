package service

type Badge struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var badges = map[string]Badge{
	"dev":          {Key: "dev", Name: "Developer", Color: "#ef4444", Icon: "/badges/dev.png"},
	"holder":       {Key: "holder", Name: "Holder", Color: "#22c55e", Icon: "/badges/holder.png"},
	"basic":        {Key: "basic", Name: "Basic", Color: "#cd7f32", Icon: "/badges/basic.png"},
	"standard":     {Key: "standard", Name: "Standard", Color: "#c0c0c0", Icon: "/badges/standard.png"},
	"pro":          {Key: "pro", Name: "Pro", Color: "#f5a623", Icon: "/badges/pro.png"},
	"starter":      {Key: "starter", Name: "Starter Pack", Color: "#a855f7", Icon: "https://cdn-icons-png.flaticon.com/128/3068/3068326.png"},
	"creator":      {Key: "creator", Name: "Creator Pack", Color: "#ec4899", Icon: "/badges/creator.png"},
	"professional": {Key: "professional", Name: "Professional Pack", Color: "#f59e0b", Icon: "https://cdn-icons-png.flaticon.com/128/3068/3068349.png"},
}

func LookupBadge(key string) (Badge, bool) {
	b, ok := badges[key]
	return b, ok
}

func Badges() map[string]Badge {
	out := make(map[string]Badge, len(badges))
	for k, v := range badges {
		out[k] = v
	}
	return out
}
