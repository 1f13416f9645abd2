package recipe

// DefaultRecipes 目錄檔無法讀取時使用的內建食譜
func DefaultRecipes() []Recipe {
	return []Recipe{
		{ID: 1, Name: "Simple Salad", Ingredients: []string{"lettuce", "tomato", "cucumber", "onion"},
			Difficulty: "easy", PrepTimeMins: 10, Servings: 2, Description: "Fresh green salad with vegetables"},
		{ID: 2, Name: "Vegetable Stir Fry", Ingredients: []string{"broccoli", "carrot", "onion", "bell pepper", "oil"},
			Difficulty: "easy", PrepTimeMins: 20, Servings: 3, Description: "Quick and healthy stir fry"},
		{ID: 3, Name: "Tomato Pasta", Ingredients: []string{"pasta", "tomato", "garlic", "onion", "oil"},
			Difficulty: "easy", PrepTimeMins: 25, Servings: 4, Description: "Classic Italian pasta sauce"},
		{ID: 4, Name: "Vegetable Soup", Ingredients: []string{"carrot", "onion", "potato", "tomato", "celery"},
			Difficulty: "easy", PrepTimeMins: 30, Servings: 4, Description: "Hearty vegetable soup"},
		{ID: 5, Name: "Fruit Smoothie", Ingredients: []string{"banana", "strawberry", "yogurt", "milk"},
			Difficulty: "easy", PrepTimeMins: 5, Servings: 2, Description: "Refreshing fruit smoothie"},
		{ID: 6, Name: "Grilled Vegetables", Ingredients: []string{"bell pepper", "zucchini", "onion", "tomato", "oil"},
			Difficulty: "easy", PrepTimeMins: 20, Servings: 3, Description: "Seasoned grilled vegetables"},
		{ID: 7, Name: "Garlic Bread", Ingredients: []string{"bread", "butter", "garlic"},
			Difficulty: "easy", PrepTimeMins: 15, Servings: 4, Description: "Crispy garlic bread"},
		{ID: 8, Name: "Avocado Toast", Ingredients: []string{"bread", "avocado", "tomato", "salt", "pepper"},
			Difficulty: "easy", PrepTimeMins: 5, Servings: 1, Description: "Trendy avocado toast breakfast"},
		{ID: 9, Name: "Carrot Salad", Ingredients: []string{"carrot", "lettuce", "onion"},
			Difficulty: "easy", PrepTimeMins: 10, Servings: 2, Description: "Crunchy carrot and lettuce salad"},
		{ID: 10, Name: "Lemon Rice", Ingredients: []string{"rice", "lemon", "oil", "onion"},
			Difficulty: "easy", PrepTimeMins: 20, Servings: 3, Description: "Fragrant lemon-flavored rice"},
	}
}
