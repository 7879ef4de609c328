package service

// エリア/都道府県/カテゴリの固定語彙。
// フロントエンドの絞り込みUIと統計集計の両方で使う。
// 都道府県は住所の前方一致で判定するため短縮名(「東京都」ではなく「東京」)で持つ。

var Areas = []string{"北海道", "東北", "関東", "中部", "近畿", "中国", "四国", "九州"}

var AreaPrefectures = map[string][]string{
	"北海道": {"北海道"},
	"東北":  {"青森", "岩手", "宮城", "秋田", "山形", "福島"},
	"関東":  {"茨城", "栃木", "群馬", "埼玉", "千葉", "東京", "神奈川"},
	"中部":  {"新潟", "富山", "石川", "福井", "山梨", "長野", "岐阜", "静岡", "愛知"},
	"近畿":  {"三重", "滋賀", "京都", "大阪", "兵庫", "奈良", "和歌山"},
	"中国":  {"鳥取", "島根", "岡山", "広島", "山口"},
	"四国":  {"徳島", "香川", "愛媛", "高知"},
	"九州":  {"福岡", "佐賀", "長崎", "熊本", "大分", "宮崎", "鹿児島", "沖縄"},
}

var Prefectures = []string{
	"北海道", "青森", "岩手", "宮城", "秋田", "山形", "福島",
	"茨城", "栃木", "群馬", "埼玉", "千葉", "東京", "神奈川",
	"新潟", "富山", "石川", "福井", "山梨", "長野", "岐阜", "静岡", "愛知",
	"三重", "滋賀", "京都", "大阪", "兵庫", "奈良", "和歌山",
	"鳥取", "島根", "岡山", "広島", "山口",
	"徳島", "香川", "愛媛", "高知",
	"福岡", "佐賀", "長崎", "熊本", "大分", "宮崎", "鹿児島", "沖縄",
}

var AllCategories = []string{
	"和食", "寿司", "ラーメン", "うどん", "そば", "焼肉", "焼鳥", "居酒屋",
	"イタリアン", "フレンチ", "中華", "韓国料理", "タイ料理", "インド料理",
	"カフェ", "パン", "スイーツ", "バー", "パブ",
}

var CategoryGroups = map[string][]string{
	"和食":  {"和食", "寿司", "ラーメン", "うどん", "そば", "焼肉", "焼鳥", "居酒屋"},
	"洋食":  {"イタリアン", "フレンチ"},
	"アジア": {"中華", "韓国料理", "タイ料理", "インド料理"},
	"その他": {"カフェ", "パン", "スイーツ", "バー", "パブ"},
}
