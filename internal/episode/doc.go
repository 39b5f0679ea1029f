// Package episode loads raw teleoperation captures. Each capture is an
// NPZ archive (one per episode) holding time-synchronized joint readings,
// commanded actions and camera image streams. Numeric arrays are loaded
// eagerly; image streams are read one frame at a time since they dominate
// episode size.
package episode
