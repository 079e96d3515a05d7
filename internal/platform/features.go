package platform

// GraphQL operation ids of the web client.
const (
	opSearchTimeline   = "gkjsKepM6gl_HmFWoWKfgg/SearchTimeline"
	opCreateTweet      = "a1p9RWpkYKBjWv_I3WzS-A/CreateTweet"
	opTweetDetail      = "xOhkmRac04YFZmOzU9PJHg/TweetDetail"
	opUserByScreenName = "G3KGOASz96M-Qu0nwmGXNg/UserByScreenName"
	opFollowers        = "OGScL-RC4DFMsRGOCjPR6g/Followers"
)

// defaultFeatures returns the feature flags the GraphQL endpoints reject requests without.
func defaultFeatures() map[string]bool {
	return map[string]bool{
		"verified_phone_label_enabled":                                            false,
		"tweetypie_unmention_optimization_enabled":                                true,
		"responsive_web_edit_tweet_api_enabled":                                   true,
		"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
		"view_counts_everywhere_api_enabled":                                      true,
		"longform_notetweets_consumption_enabled":                                 true,
		"responsive_web_twitter_article_tweet_consumption_enabled":                false,
		"tweet_awards_web_tipping_enabled":                                        false,
		"freedom_of_speech_not_reach_fetch_enabled":                               true,
		"standardized_nudges_misinfo":                                             true,
		"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
		"longform_notetweets_rich_text_read_enabled":                              true,
		"longform_notetweets_inline_media_enabled":                                true,
		"responsive_web_enhance_cards_enabled":                                    false,
		"responsive_web_graphql_exclude_directive_enabled":                        true,
		"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
		"responsive_web_graphql_timeline_navigation_enabled":                      true,
		"vibe_api_enabled":                                                        false,
		"responsive_web_text_conversations_enabled":                               false,
		"interactive_text_enabled":                                                true,
		"blue_business_profile_image_shape_enabled":                               false,
		"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
		"rweb_video_timestamps_enabled":                                           true,
		"responsive_web_media_download_video_enabled":                             false,
		"rweb_tipjar_consumption_enabled":                                         true,
		"articles_preview_enabled":                                                true,
		"creator_subscriptions_quote_tweet_preview_enabled":                       true,
		"communities_web_enable_tweet_community_results_fetch":                    true,
		"android_graphql_skip_api_media_color_palette":                            false,
		"creator_subscriptions_tweet_preview_api_enabled":                         true,
		"unified_cards_ad_metadata_container_dynamic_card_content_query_enabled":  false,
	}
}
